// Package dbs wraps the dataset catalog reader API. It answers the
// metadata questions the policy engine and its operators ask about datasets:
// observed events per lumi section, total events and lumis, size, and
// access status.
//
// Answers are cached through the SQLite store with a per-entry lifetime;
// the cache is consulted before the network. The client applies its own
// request timeout; callers never retry.
package dbs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/prodops/chainsizer/internal/config"
	"github.com/prodops/chainsizer/internal/store"
)

const requestTimeout = 30 * time.Second

// Datasets known to exist, used by the liveness probe.
const probeDataset = "/TTJets_13TeV-amcatnloFXFX-pythia8/RunIIWinter15GS-V1-v1/GEN-SIM"

// Client reads dataset metadata from the catalog service.
type Client struct {
	http  *resty.Client
	cache *store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewClient builds a catalog client from the dbs config block. The cache
// store may be nil, in which case every call goes to the network.
func NewClient(cfg config.DBS, cache *store.Store) *Client {
	http := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:  http,
		cache: cache,
		ttl:   time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		now:   time.Now,
	}
}

// RequestError is a failed catalog request.
type RequestError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog request %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("catalog request %s failed with status %d", e.Endpoint, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

type fileSummary struct {
	NumEvent int64 `json:"num_event"`
	NumLumi  int64 `json:"num_lumi"`
}

type blockSummary struct {
	FileSize int64 `json:"file_size"`
}

type datasetInfo struct {
	AccessType string `json:"dataset_access_type"`
}

// EventsPerLumi returns the observed average events per lumi section of a
// dataset, cached under the "events_per_lumi" field. Zero with a nil error
// means the catalog has no lumi information for the dataset; callers fall
// back to other sources.
func (c *Client) EventsPerLumi(ctx context.Context, dataset string) (float64, error) {
	if v, ok, err := c.cached(ctx, dataset, "events_per_lumi"); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}

	events, lumis, err := c.EventsAndLumis(ctx, dataset)
	if err != nil {
		return 0, err
	}

	perLumi := 0.0
	if lumis > 0 {
		perLumi = float64(events) / float64(lumis)
	}
	if err := c.remember(ctx, dataset, "events_per_lumi", perLumi); err != nil {
		return 0, err
	}
	return perLumi, nil
}

// EventsAndLumis returns the total number of valid events and lumi sections
// in a dataset.
func (c *Client) EventsAndLumis(ctx context.Context, dataset string) (int64, int64, error) {
	var files []fileSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("dataset", dataset).
		SetQueryParam("validFileOnly", "1").
		SetResult(&files).
		Get("/filesummaries")
	if err := checkResponse("filesummaries", resp, err); err != nil {
		return 0, 0, err
	}

	var events, lumis int64
	for _, f := range files {
		events += f.NumEvent
		lumis += f.NumLumi
	}
	return events, lumis, nil
}

// DatasetSize returns the dataset size in GB, cached under "size_gb".
func (c *Client) DatasetSize(ctx context.Context, dataset string) (float64, error) {
	if v, ok, err := c.cached(ctx, dataset, "size_gb"); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}

	var blocks []blockSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("dataset", dataset).
		SetQueryParam("detail", "true").
		SetResult(&blocks).
		Get("/blocksummaries")
	if err := checkResponse("blocksummaries", resp, err); err != nil {
		return 0, err
	}

	var bytes int64
	for _, b := range blocks {
		bytes += b.FileSize
	}
	sizeGB := float64(bytes) / (1024.0 * 1024.0 * 1024.0)
	if err := c.remember(ctx, dataset, "size_gb", sizeGB); err != nil {
		return 0, err
	}
	return sizeGB, nil
}

// DatasetStatus returns the catalog access status of a dataset
// (VALID, INVALID, PRODUCTION, ...). Status is never cached: it is the one
// field operators change by hand.
func (c *Client) DatasetStatus(ctx context.Context, dataset string) (string, error) {
	var infos []datasetInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("dataset", dataset).
		SetQueryParam("dataset_access_type", "*").
		SetQueryParam("detail", "true").
		SetResult(&infos).
		Get("/datasets")
	if err := checkResponse("datasets", resp, err); err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", &RequestError{Endpoint: "datasets", Err: fmt.Errorf("dataset %s not found", dataset)}
	}
	return infos[0].AccessType, nil
}

// Check probes the catalog with a known dataset and reports whether it
// answers at all.
func (c *Client) Check(ctx context.Context) error {
	var blocks []blockSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("dataset", probeDataset).
		SetQueryParam("detail", "true").
		SetResult(&blocks).
		Get("/blocksummaries")
	if err := checkResponse("blocksummaries", resp, err); err != nil {
		return err
	}
	if len(blocks) == 0 {
		return &RequestError{Endpoint: "blocksummaries", Err: fmt.Errorf("catalog returned no blocks for probe dataset")}
	}
	return nil
}

func (c *Client) cached(ctx context.Context, dataset, field string) (float64, bool, error) {
	if c.cache == nil {
		return 0, false, nil
	}
	return c.cache.Get(ctx, dataset, field, c.now())
}

func (c *Client) remember(ctx context.Context, dataset, field string, value float64) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Put(ctx, dataset, field, value, c.now(), c.ttl)
}

func checkResponse(endpoint string, resp *resty.Response, err error) error {
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	if resp.IsError() {
		return &RequestError{Endpoint: endpoint, Status: resp.StatusCode()}
	}
	return nil
}
