// Package sheets reads the lead block from a spreadsheet. Client talks to
// the Google Sheets values API with a service account; FileSource reads a
// CSV export for local runs.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/leadsync/internal/core"
)

// ReadOnlyScope is the only scope the client requests.
const ReadOnlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

// DefaultRange is the block the lead form writes to.
const DefaultRange = "Sheet2!A1:Z"

// Config identifies the spreadsheet and the service account used to read it.
// Either CredentialsFile or ClientEmail+PrivateKey must be set.
type Config struct {
	SpreadsheetID   string
	Range           string
	ClientEmail     string
	PrivateKey      string // PEM; literal "\n" sequences are expanded
	CredentialsFile string // service account JSON key
	BaseURL         string // API endpoint override; empty uses the public one
	Timeout         time.Duration
}

// Client fetches the configured range on every call.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	rng           string
}

// New builds a Client authenticated with a service-account JWT.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}

	jwtCfg, err := jwtConfig(cfg)
	if err != nil {
		return nil, err
	}

	hc := jwtCfg.Client(ctx)
	hc.Timeout = cfg.Timeout
	return NewWithHTTPClient(ctx, hc, cfg)
}

// NewWithHTTPClient builds a Client over an already-authenticated client.
func NewWithHTTPClient(ctx context.Context, hc *http.Client, cfg Config) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithEndpoint(base+"/"))
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	rng := cfg.Range
	if rng == "" {
		rng = DefaultRange
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		rng:           rng,
	}, nil
}

func jwtConfig(cfg Config) (*jwt.Config, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("sheets: read credentials: %w", err)
		}
		jc, err := google.JWTConfigFromJSON(data, ReadOnlyScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse credentials: %w", err)
		}
		return jc, nil
	}

	if cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("sheets: service account email and private key are required")
	}
	return &jwt.Config{
		Email:      cfg.ClientEmail,
		PrivateKey: []byte(ExpandPrivateKey(cfg.PrivateKey)),
		Scopes:     []string{ReadOnlyScope},
		TokenURL:   google.JWTTokenURL,
	}, nil
}

// ExpandPrivateKey turns escaped newlines from an env var back into a PEM.
func ExpandPrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// FetchRows returns every row of the range, header included. Trailing
// empty cells are omitted by the API, so rows may be ragged.
func (c *Client) FetchRows(ctx context.Context) ([]core.RawRow, error) {
	vr, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).Context(ctx).Do()
	if err != nil {
		return nil, apiErr(err)
	}
	return toRows(vr.Values), nil
}

// apiErr phrases API failures so core.MapError can tell rejected
// credentials, a missing spreadsheet and an unavailable service apart.
func apiErr(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("sheets api: %w", err)
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("sheets api: spreadsheet not found: %s", gerr.Message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("sheets api: access denied (status %d): %s", gerr.Code, gerr.Message)
	}
	if gerr.Message == "" {
		return fmt.Errorf("sheets api: status %d", gerr.Code)
	}
	return fmt.Errorf("sheets api: status %d: %s", gerr.Code, gerr.Message)
}

func toRows(values [][]interface{}) []core.RawRow {
	rows := make([]core.RawRow, len(values))
	for i, vals := range values {
		row := make(core.RawRow, len(vals))
		for j, v := range vals {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
