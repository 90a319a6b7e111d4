package inspect

import (
	"fmt"
	"strings"
	"sync"
)

// Strategy converts an inspect MIME bundle into a Sections record.
type Strategy func(data map[string]string) Sections

type registry struct {
	languages map[string]Strategy
	aliases   map[string]Strategy
	mu        sync.RWMutex
}

var register = &registry{
	languages: make(map[string]Strategy),
	aliases:   make(map[string]Strategy),
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// RegisterLanguage maps a kernel source language to a strategy. Returns
// ErrAlreadyRegistered for duplicate registration; adding support for a
// new kernel is additive, never a replacement.
// Thread-safe for concurrent registration.
func RegisterLanguage(language string, strategy Strategy) error {
	key := normalize(language)
	if key == "" {
		return ErrEmptyIdentity
	}

	register.mu.Lock()
	defer register.mu.Unlock()

	if _, exists := register.languages[key]; exists {
		return fmt.Errorf("%w: language %s", ErrAlreadyRegistered, key)
	}
	register.languages[key] = strategy
	return nil
}

// RegisterAlias maps a kernel name to a strategy, for kernels whose
// declared language is absent or unrecognized.
// Thread-safe for concurrent registration.
func RegisterAlias(kernelName string, strategy Strategy) error {
	key := normalize(kernelName)
	if key == "" {
		return ErrEmptyIdentity
	}

	register.mu.Lock()
	defer register.mu.Unlock()

	if _, exists := register.aliases[key]; exists {
		return fmt.Errorf("%w: alias %s", ErrAlreadyRegistered, key)
	}
	register.aliases[key] = strategy
	return nil
}

// ForKernel selects the strategy for a kernel identity. Kernel-name
// aliases win over the declared language; unrecognized identities fall
// back to the Generic strategy.
func ForKernel(language, kernelName string) Strategy {
	register.mu.RLock()
	defer register.mu.RUnlock()

	if strategy, ok := register.aliases[normalize(kernelName)]; ok {
		return strategy
	}
	if strategy, ok := register.languages[normalize(language)]; ok {
		return strategy
	}
	return Generic
}

// Styled transcripts are what IPython-family kernels produce; both the
// language and the common kernel names select that strategy.
func init() {
	if err := RegisterLanguage("python", Styled); err != nil {
		panic(err)
	}
	for _, alias := range []string{"python3", "ipython", "ipykernel"} {
		if err := RegisterAlias(alias, Styled); err != nil {
			panic(err)
		}
	}
}
