// Package domain contains the core business entities and interfaces.
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnknownBranch indicates that a branch identifier is not part of the
// configured branch table.
var ErrUnknownBranch = errors.New("unknown branch")

// BranchConfig is a fixed work location with its flat daily wage.
type BranchConfig struct {
	ID   string          `json:"id"`
	Wage decimal.Decimal `json:"wage"`
}

// Registry holds the branch table. It is built once at startup and is
// read-only afterwards; changing branches is a deployment-time operation.
type Registry struct {
	byID  map[string]BranchConfig
	order []string
}

// NewRegistry builds a Registry from the configured branches. Later entries
// with a duplicate ID overwrite earlier ones.
func NewRegistry(branches []BranchConfig) *Registry {
	r := &Registry{byID: make(map[string]BranchConfig, len(branches))}
	for _, b := range branches {
		if _, seen := r.byID[b.ID]; !seen {
			r.order = append(r.order, b.ID)
		}
		r.byID[b.ID] = b
	}
	return r
}

// WageFor returns the fixed daily wage for a branch.
func (r *Registry) WageFor(branchID string) (decimal.Decimal, error) {
	b, ok := r.byID[branchID]
	if !ok {
		return decimal.Zero, ErrUnknownBranch
	}
	return b.Wage, nil
}

// Branches returns the configured branches in configuration order.
func (r *Registry) Branches() []BranchConfig {
	out := make([]BranchConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
