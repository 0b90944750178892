package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/loader"
)

type SimFaults struct {
	FailBackground bool `json:"failBackground"`
	FailOverlay    bool `json:"failOverlay"`
	// DelayMs is the upper bound of a random per-load delay, so renders can
	// complete out of order.
	DelayMs int `json:"delayMs"`
}

type SimControl struct {
	catalog catalog.Catalog
	loader  *loader.Loader

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}
}

func NewSimControl(cat catalog.Catalog, l *loader.Loader) *SimControl {
	return &SimControl{catalog: cat, loader: l}
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	return c.faults.v
}

// SetFaults replaces the active faults and drops cached catalog images so
// the next render goes through the fetcher again.
func (c *SimControl) SetFaults(v SimFaults) {
	if v.DelayMs < 0 {
		v.DelayMs = 0
	}
	c.faults.mu.Lock()
	c.faults.v = v
	c.faults.mu.Unlock()
	c.forgetCatalog()
}

func (c *SimControl) Reset() {
	c.SetFaults(SimFaults{})
}

func (c *SimControl) forgetCatalog() {
	if c.loader == nil {
		return
	}
	for _, e := range c.catalog.Backgrounds {
		c.loader.Forget(e.Source)
	}
	for _, e := range c.catalog.Overlays {
		c.loader.Forget(e.Source)
	}
}

// SimFetcher applies the active faults before delegating to Next.
type SimFetcher struct {
	Control *SimControl
	Next    loader.Fetcher
}

func (f SimFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	faults := f.Control.Faults()
	if faults.DelayMs > 0 {
		delay := rand.N(time.Duration(faults.DelayMs)*time.Millisecond + 1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	switch swatchKind(source) {
	case "background":
		if faults.FailBackground {
			return nil, fmt.Errorf("simulated background load failure: %s", source)
		}
	case "overlay":
		if faults.FailOverlay {
			return nil, fmt.Errorf("simulated overlay load failure: %s", source)
		}
	}
	return f.Next.Fetch(ctx, source)
}

// assetHandler serves generated swatches keyed by their relative source.
func assetHandler(swatches map[string][]byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		data, ok := swatches[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
	})
}

func registerSimEndpoints(mux *http.ServeMux, control *SimControl, swatches map[string][]byte) {
	mux.Handle("/sim/assets/", http.StripPrefix("/sim/assets", assetHandler(swatches)))

	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		control.Reset()
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "faults": control.Faults()})
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		case http.MethodPost:
			var patch struct {
				FailBackground *bool `json:"failBackground"`
				FailOverlay    *bool `json:"failOverlay"`
				DelayMs        *int  `json:"delayMs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.FailBackground != nil {
				current.FailBackground = *patch.FailBackground
			}
			if patch.FailOverlay != nil {
				current.FailOverlay = *patch.FailOverlay
			}
			if patch.DelayMs != nil {
				current.DelayMs = *patch.DelayMs
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
