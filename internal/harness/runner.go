package harness

import (
	"context"
	"fmt"

	"github.com/prodops/chainsizer/internal/config"
	"github.com/prodops/chainsizer/internal/policy"
	"github.com/prodops/chainsizer/internal/splitting"
	"github.com/prodops/chainsizer/internal/testutil"
	"github.com/prodops/chainsizer/internal/workflow"
)

// Result captures everything a scenario run produced.
type Result struct {
	Decision *policy.Decision
	Advice   *policy.Advice // set when the scenario expects an eligibility answer
	Entries  []*splitting.Entry
}

// Run executes the policy engine against a scenario.
func Run(s *Scenario) (*Result, error) {
	cfg := config.Default()
	if s.Config.GBSpaceLimit != 0 {
		cfg.GBSpaceLimit = s.Config.GBSpaceLimit
	}
	if s.Config.MinEventsPerLumiOutput != 0 {
		cfg.MinEventsPerLumiOutput = s.Config.MinEventsPerLumiOutput
	}

	metadata := &testutil.StaticMetadata{PerLumi: s.Metadata}
	engine := policy.New(cfg, metadata, nil)
	req := workflow.New(s.Workflow)

	decision, err := engine.CheckSplitting(context.Background(), req, s.Splittings)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: splitting check failed: %w", s.Name, err)
	}

	result := &Result{Decision: decision, Entries: s.Splittings}

	if s.Expect.Eligible != nil {
		advice, err := engine.AdviseConversion(req, s.Keywords)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: conversion advice failed: %w", s.Name, err)
		}
		result.Advice = advice
	}

	return result, nil
}
