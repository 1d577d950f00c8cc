// Package feed streams the pipe-delimited ROC license extract and yields raw
// records that satisfy the minimal structural contract (a license number).
package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/SGK112/remodely-importer/pkg/models"
)

const (
	// DefaultProgressInterval is how many accepted rows pass between progress logs.
	DefaultProgressInterval = 1000

	fieldSeparator = "|"

	// maxLineBytes bounds a single feed row; the extract's widest rows are
	// well under 4KB.
	maxLineBytes = 1 << 20
)

// column names as they appear in the extract header
const (
	colSequence        = "#"
	colLicenseNumber   = "License No"
	colBusinessName    = "Business Name"
	colDoingBusinessAs = "Doing Business As"
	colAddress         = "Address"
	colCity            = "City"
	colState           = "State"
	colZip             = "Zip"
	colClass           = "Class"
	colClassDetail     = "Class Detail"
	colClassType       = "Class Type"
	colQualifyingParty = "Qualifying Party"
	colIssuedDate      = "Issued Date"
	colExpirationDate  = "Expiration Date"
	colStatus          = "Status"
)

// Parser reads the extract sequentially and hands each valid raw record to a
// caller-supplied yield function. Parsing is single pass; restart a run by
// constructing a new read through ParseFile.
type Parser struct {
	logger           ectologger.Logger
	validate         *validator.Validate
	progressInterval int
}

// NewParser creates a feed parser. progressInterval <= 0 falls back to the default.
func NewParser(logger ectologger.Logger, progressInterval int) *Parser {
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}
	return &Parser{
		logger:           logger,
		validate:         validator.New(),
		progressInterval: progressInterval,
	}
}

// ParseFile opens the extract at path and streams it through Parse. A missing
// or unreadable file is a structural error that aborts the run.
func (p *Parser) ParseFile(ctx context.Context, path string, yield func(*models.IncomingRecord) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open feed %s: %w", path, err)
	}
	defer f.Close()

	return p.Parse(ctx, f, yield)
}

// Parse reads rows from r, skipping header/banner rows and rows without a
// license number, and yields each accepted record. It returns the number of
// accepted rows. A read error aborts and is returned; an error from yield
// stops the stream and is returned unchanged.
func (p *Parser) Parse(ctx context.Context, r io.Reader, yield func(*models.IncomingRecord) error) (int, error) {
	log := p.logger.WithContext(ctx)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var columns map[string]int
	accepted := 0
	lineNo := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return accepted, ctx.Err()
		default:
		}

		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, fieldSeparator)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		// The first header line establishes the column layout. Banner copies
		// of the header embedded mid-file are dropped by the license check.
		if columns == nil {
			if !isHeader(fields) {
				log.WithFields(map[string]any{"line": lineNo}).Warn("Feed does not start with a header row")
				return 0, fmt.Errorf("feed header row not found")
			}
			columns = indexColumns(fields)
			continue
		}

		rec, ok := p.parseRow(fields, columns)
		if !ok {
			continue
		}

		if err := p.validate.Struct(rec); err != nil {
			log.WithFields(map[string]any{"line": lineNo}).Debug("Skipping row failing boundary validation")
			continue
		}

		if err := yield(rec); err != nil {
			return accepted, err
		}

		accepted++
		if accepted%p.progressInterval == 0 {
			log.WithFields(map[string]any{"rows": accepted}).Info("Feed parse progress")
		}
	}

	if err := scanner.Err(); err != nil {
		return accepted, fmt.Errorf("failed to read feed: %w", err)
	}

	return accepted, nil
}

// parseRow builds an IncomingRecord from one data line. Rows with a literal
// "#" sequence marker (header banners), too few fields, or a blank license
// number are rejected.
func (p *Parser) parseRow(fields []string, columns map[string]int) (*models.IncomingRecord, bool) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return fields[idx]
	}

	if get(colSequence) == "#" {
		return nil, false
	}

	license := get(colLicenseNumber)
	if license == "" || strings.EqualFold(license, "License No") {
		return nil, false
	}

	return &models.IncomingRecord{
		Sequence:        get(colSequence),
		LicenseNumber:   license,
		BusinessName:    get(colBusinessName),
		DoingBusinessAs: get(colDoingBusinessAs),
		Address:         get(colAddress),
		City:            get(colCity),
		State:           get(colState),
		Zip:             get(colZip),
		Class:           get(colClass),
		ClassDetail:     get(colClassDetail),
		ClassType:       get(colClassType),
		QualifyingParty: get(colQualifyingParty),
		IssuedDate:      get(colIssuedDate),
		ExpirationDate:  get(colExpirationDate),
		Status:          get(colStatus),
	}, true
}

func isHeader(fields []string) bool {
	for _, f := range fields {
		if f == colLicenseNumber {
			return true
		}
	}
	return false
}

func indexColumns(fields []string) map[string]int {
	columns := make(map[string]int, len(fields))
	for i, f := range fields {
		columns[f] = i
	}
	return columns
}
