package weekrep

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/weekrep/weekrep/internal/report"
)

// approve shows the report and loops until the reviewer accepts it. A "no"
// answer asks what should change and runs the feedback back through the
// summarizer. There is no retry limit; only an accepted report leaves the
// loop.
func approve(ctx context.Context, gen *report.Generator, rep *report.Report, in io.Reader, out io.Writer) (*report.Report, error) {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprintf(out, "\n%s\n\n", rep.Body)
		fmt.Fprint(out, "Approve this report? (yes/no): ")

		answer, ok := readLine(scanner)
		if !ok {
			return nil, fmt.Errorf("input closed before approval")
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return rep, nil
		case "n", "no":
			fmt.Fprint(out, "What should change? ")
			feedback, ok := readLine(scanner)
			if !ok {
				return nil, fmt.Errorf("input closed before approval")
			}
			if strings.TrimSpace(feedback) == "" {
				continue
			}

			refined, err := gen.Refine(ctx, rep, strings.TrimSpace(feedback))
			if err != nil {
				fmt.Fprintf(out, "Could not refine the report: %v\nKeeping the previous draft.\n", err)
				continue
			}
			rep = refined
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func readLine(scanner *bufio.Scanner) (string, bool) {
	if !scanner.Scan() {
		return "", false
	}
	return scanner.Text(), true
}
