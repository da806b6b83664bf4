package gsuite

import (
	"context"
	"fmt"
	"regexp"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// Docs pushes report text into a Google Docs document.
type Docs struct {
	svc *docs.Service
}

func NewDocs(ctx context.Context, creds *CredentialProvider) (*Docs, error) {
	httpClient, err := creds.Client(ctx, "docs", docs.DocumentsScope)
	if err != nil {
		return nil, err
	}

	svc, err := docs.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	return &Docs{svc: svc}, nil
}

var docIDPattern = regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`)

// DocumentID extracts the document ID from a Google Docs link.
func DocumentID(link string) (string, error) {
	m := docIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", fmt.Errorf("no document ID in %q", link)
	}
	return m[1], nil
}

// ReplaceBody overwrites the document's content with the given text. The
// content is written as plain text; any Markdown stays unrendered.
func (d *Docs) ReplaceBody(ctx context.Context, docID, text string) error {
	doc, err := d.svc.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	end := int64(1)
	if doc.Body != nil && len(doc.Body.Content) > 0 {
		end = doc.Body.Content[len(doc.Body.Content)-1].EndIndex
	}

	var requests []*docs.Request
	// The final newline of a document cannot be deleted, so the clear stops
	// one short of the end. An empty document has nothing to clear.
	if end > 2 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: end - 1},
			},
		})
	}
	requests = append(requests, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     text,
		},
	})

	_, err = d.svc.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return nil
}
