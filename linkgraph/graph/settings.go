package graph

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Policy regulates how the builder treats self links and dangling nodes.
// The meaning of each value depends on the concept it regulates.
type Policy uint8

const (
	// PolicyIgnore drops self links / leaves dangling nodes without out-links.
	PolicyIgnore Policy = iota
	// PolicyKeep registers self links / links dangling nodes to every URL.
	PolicyKeep
)

// ParsePolicy maps "keep" (any case) to PolicyKeep. Every other value,
// including the empty string, maps to PolicyIgnore.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "keep") {
		return PolicyKeep
	}
	return PolicyIgnore
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	if p == PolicyKeep {
		return "KEEP"
	}
	return "IGNORE"
}

// Settings encapsulates the policies and numeric parameters that drive both
// graph construction and the PageRank iteration.
type Settings struct {
	DanglingNodePolicy Policy
	SelfLinkPolicy     Policy

	// ErrorTolerance is the L1 distance below which the iteration is
	// considered converged.
	ErrorTolerance float64
	// MaxIterations caps the number of iterations.
	MaxIterations int
	// DampingFactor is the probability that the random surfer follows a
	// link instead of jumping to a random page.
	DampingFactor float64
}

// Validate checks that every numeric parameter is in range.
func (s Settings) Validate() error {
	var err error
	if s.DanglingNodePolicy != PolicyKeep && s.DanglingNodePolicy != PolicyIgnore {
		err = multierror.Append(err, xerrors.Errorf("unknown dangling node policy %d", s.DanglingNodePolicy))
	}
	if s.SelfLinkPolicy != PolicyKeep && s.SelfLinkPolicy != PolicyIgnore {
		err = multierror.Append(err, xerrors.Errorf("unknown self link policy %d", s.SelfLinkPolicy))
	}
	if !(s.ErrorTolerance > 0) {
		err = multierror.Append(err, xerrors.New("error tolerance must be > 0"))
	}
	if s.MaxIterations <= 0 {
		err = multierror.Append(err, xerrors.New("max iterations must be > 0"))
	}
	if !(s.DampingFactor > 0 && s.DampingFactor < 1) {
		err = multierror.Append(err, xerrors.New("damping factor must be in the range (0, 1)"))
	}
	return err
}
