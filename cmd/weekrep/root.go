package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weekrep/weekrep/internal/config"
	"github.com/weekrep/weekrep/internal/weekrep"
)

var (
	startDate    string
	endDate      string
	output       string
	templateFile string
	interactive  bool
	xlsxExport   bool
	noDraft      bool
	verbose      bool

	draftFile string
	syncFile  string
)

var rootCmd = &cobra.Command{
	Use:   "weekrep",
	Short: "Generate weekly engineering reports",
	Long: `Weekrep aggregates a week of engineering activity (GitHub pull requests,
code coverage, calendar meetings, Google Forms submissions) into a Markdown
report, optionally summarized by an LLM.`,
	RunE: runGenerate,
}

var (
	draftCmd = &cobra.Command{
		Use:   "draft",
		Short: "Create a Gmail draft from a generated report",
		Long:  `Wraps an existing Markdown report in the mail template and saves it as a Gmail draft.`,
		RunE:  runDraft,
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Sync a generated report into the shared Google Doc",
		Long:  `Finds this week's report notification mail, follows its Google Docs link and replaces the document body with the report.`,
		RunE:  runSync,
	}
)

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(syncCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (YYYY-MM-DD, default: Monday of this week)")
	rootCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (YYYY-MM-DD, default: Friday of this week)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: OUTPUT_DIR or ./output)")
	rootCmd.Flags().StringVar(&templateFile, "template", "", "Markdown report template file (default: built-in template)")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Review the report and request LLM refinements before saving")
	rootCmd.Flags().BoolVar(&xlsxExport, "xlsx", false, "Also export an activity workbook (.xlsx)")
	rootCmd.Flags().BoolVar(&noDraft, "no-draft", false, "Skip creating a Gmail draft")

	draftCmd.Flags().StringVarP(&draftFile, "file", "f", "", "Report file to draft (default: newest report in the output directory)")
	syncCmd.Flags().StringVarP(&syncFile, "file", "f", "", "Report file to sync (default: newest report in the output directory)")
}

func newApp() (*weekrep.Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	userData, err := config.LoadUserData(cfg.UserDataFile)
	if err != nil {
		return nil, err
	}

	return weekrep.New(cfg, userData, verbose), nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	printer := &progressPrinter{}
	defer printer.Done()

	return app.GenerateReport(cmd.Context(), weekrep.GenerateOptions{
		Start:        startDate,
		End:          endDate,
		OutputDir:    output,
		TemplateFile: templateFile,
		Interactive:  interactive,
		XLSX:         xlsxExport,
		NoDraft:      noDraft,
		Progress:     printer.Update,
	})
}

func runDraft(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	bar := newSpinner("Creating Gmail draft")
	err = app.CreateDraft(cmd.Context(), draftFile)
	finishBar(bar)
	if err != nil {
		return err
	}

	fmt.Println("\n✓ Created Gmail draft")
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	bar := newSpinner("Syncing report to Google Docs")
	err = app.SyncDocs(cmd.Context(), syncFile)
	finishBar(bar)
	if err != nil {
		return err
	}

	fmt.Println("\n✓ Synced report to Google Docs")
	return nil
}
