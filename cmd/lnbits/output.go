package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
)

// printer writes command results as text, indented JSON, or jq output.
type printer struct {
	w    io.Writer
	json bool
	jq   *gojq.Code
}

func newPrinter(w io.Writer, jsonOutput bool, jqFilter string) (*printer, error) {
	p := &printer{w: w, json: jsonOutput}
	if jqFilter == "" {
		return p, nil
	}

	query, err := gojq.Parse(jqFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", jqFilter, err)
	}
	p.jq, err = gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", jqFilter, err)
	}
	return p, nil
}

// print renders v. text is used only when neither --json nor --jq is set.
func (p *printer) print(v interface{}, text func(w io.Writer)) error {
	switch {
	case p.jq != nil:
		return p.printJQ(v)
	case p.json:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(p.w, string(data))
		return nil
	default:
		text(p.w)
		return nil
	}
}

func (p *printer) printJQ(v interface{}) error {
	// gojq only accepts plain maps, slices and scalars.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("failed to prepare jq input: %w", err)
	}

	iter := p.jq.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if s, isString := result.(string); isString {
			fmt.Fprintln(p.w, s)
			continue
		}
		out, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		fmt.Fprintln(p.w, string(out))
	}
}
