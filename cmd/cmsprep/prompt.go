package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/dgallion1/cmsprep/internal/chunker"
)

// promptParams asks whether to use the suggested parameters and, if not,
// reads explicit ones.
func promptParams(suggested chunker.Params) (chunker.Params, error) {
	accept := true
	err := huh.NewConfirm().
		Title("Use suggested values?").
		Description(fmt.Sprintf("Window size %d, overlap %d", suggested.Size, suggested.Overlap)).
		Value(&accept).
		Run()
	if err != nil {
		return chunker.Params{}, err
	}
	if accept {
		return suggested, nil
	}

	size := strconv.Itoa(suggested.Size)
	overlap := strconv.Itoa(suggested.Overlap)
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Window size").
			Description("Maximum characters per window").
			Value(&size).
			Validate(validateCount(1)),
		huh.NewInput().
			Title("Overlap size").
			Description("Characters carried into the next window").
			Value(&overlap).
			Validate(validateCount(0)),
	))
	if err := form.Run(); err != nil {
		return chunker.Params{}, err
	}
	return parseParams(size, overlap)
}

func parseParams(size, overlap string) (chunker.Params, error) {
	s, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil {
		return chunker.Params{}, fmt.Errorf("window size: %w", err)
	}
	o, err := strconv.Atoi(strings.TrimSpace(overlap))
	if err != nil {
		return chunker.Params{}, fmt.Errorf("overlap: %w", err)
	}
	p := chunker.Params{Size: s, Overlap: o}
	return p, p.Validate()
}

// validateCount accepts integers of at least minimum.
func validateCount(minimum int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("enter a whole number")
		}
		if n < minimum {
			return fmt.Errorf("must be at least %d", minimum)
		}
		return nil
	}
}
