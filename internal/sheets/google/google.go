// Package google implements the ledger mirror on Google Sheets using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"poupapig/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.LedgerWriter = (*Client)(nil)

// Config carries what the client needs. Exactly one of CredentialsJSON or
// CredentialsFile must be set; empty SheetName defaults to "Ledger".
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New builds a Sheets-backed ledger writer.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Ledger"
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Append adds one row to the ledger sheet and returns its range reference.
func (c *Client) Append(ctx context.Context, row sheets.LedgerRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	reais := float64(row.AmountCents) / 100.0
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Date.Format("2006-01-02"),
		row.Phone,
		row.Description,
		reais,
		row.Type,
		row.Category,
	}}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:F", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.sheetName, nil
}
