// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/vitalit/core"
)

// attrTimeLayout is the timestamp format used by health export files.
const attrTimeLayout = "2006-01-02 15:04:05 -0700"

const (
	rootElement   = "HealthData"
	recordElement = "Record"
)

// Parser converts raw export text into an ordered sequence of records.
//
// Records missing a required field (type, value, start date) are skipped
// with a logged warning; parsing continues. Structural problems - empty
// input, a missing HealthData root, malformed XML - fail the whole parse.
type Parser struct {
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewParser creates a new export parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		logger: slog.Default().With("component", "export-parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result holds the outcome of a parse: the records in document order and
// the count of records skipped for missing required fields.
type Result struct {
	Records []core.Record
	Skipped int
}

// Parse reads an export document and returns its records in order.
func (p *Parser) Parse(input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, core.ErrEmptyExport)
	}

	decoder := xml.NewDecoder(strings.NewReader(input))

	anchored := false
	result := &Result{}

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case rootElement:
			anchored = true
		case recordElement:
			if !anchored {
				// Record outside the HealthData root; the document is
				// structurally broken.
				return nil, fmt.Errorf("%w: %w", core.ErrParse, core.ErrMissingAnchor)
			}
			record, err := p.parseRecord(start)
			if err != nil {
				result.Skipped++
				p.logger.Warn("skipping invalid record", "err", err)
				if skipErr := decoder.Skip(); skipErr != nil {
					return nil, fmt.Errorf("%w: %v", core.ErrParse, skipErr)
				}
				continue
			}
			result.Records = append(result.Records, *record)
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
			}
		}
	}

	if !anchored {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, core.ErrMissingAnchor)
	}

	p.logger.Debug("parsed export", "records", len(result.Records), "skipped", result.Skipped)
	return result, nil
}

// parseRecord builds a record from the attributes of a Record element.
func (p *Parser) parseRecord(start xml.StartElement) (*core.Record, error) {
	record := &core.Record{}

	var startRaw, endRaw, creationRaw string
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "type":
			record.MetricType = attr.Value
		case "value":
			record.Value = attr.Value
		case "unit":
			record.Unit = attr.Value
		case "startDate":
			startRaw = attr.Value
		case "endDate":
			endRaw = attr.Value
		case "sourceName":
			record.SourceName = attr.Value
		case "sourceVersion":
			record.SourceVersion = attr.Value
		case "device":
			record.Device = attr.Value
		case "creationDate":
			creationRaw = attr.Value
		}
	}

	if startRaw != "" {
		startDate, err := time.Parse(attrTimeLayout, startRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad start date %q: %v", core.ErrValidation, startRaw, err)
		}
		record.StartDate = startDate
	}

	// End date defaults to the start date when absent or unreadable.
	record.EndDate = record.StartDate
	if endRaw != "" {
		if endDate, err := time.Parse(attrTimeLayout, endRaw); err == nil {
			record.EndDate = endDate
			record.HasEndDate = true
		}
	}

	if creationRaw != "" {
		if creationDate, err := time.Parse(attrTimeLayout, creationRaw); err == nil {
			record.CreationDate = creationDate
		}
	}

	if err := core.ValidateRecord(record); err != nil {
		return nil, err
	}

	return record, nil
}
