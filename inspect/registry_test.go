package inspect_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/bridge/inspect"
)

func TestForKernel_DefaultIsGeneric(t *testing.T) {
	strategy := inspect.ForKernel("fortran", "gfort")
	sections := strategy(map[string]string{inspect.MIMEPlain: "\x1b[1mx\x1b[0m"})
	if !sections.Raw || sections.Clean != "x" {
		t.Errorf("default strategy output = %+v, want generic raw sections", sections)
	}
}

func TestForKernel_AliasSelectsStyled(t *testing.T) {
	// Alias lookup alone must pick the styled strategy, even for a bundle
	// that happens to carry no markers. Styled's plain fallback leaves
	// Clean unset, unlike the generic strategy.
	strategy := inspect.ForKernel("", "python3")
	sections := strategy(map[string]string{inspect.MIMEPlain: "plain text"})
	if !sections.Raw || sections.Clean != "" {
		t.Errorf("alias strategy output = %+v, want styled plain fallback", sections)
	}
}

func TestForKernel_LanguageSelectsStyled(t *testing.T) {
	strategy := inspect.ForKernel("Python", "my-custom-kernel")
	sections := strategy(map[string]string{
		inspect.MIMEPlain: "\x1b[31mType:\x1b[39m int",
	})
	if sections.TypeName != "int" {
		t.Errorf("language strategy output = %+v, want parsed transcript", sections)
	}
}

func TestForKernel_NormalizesIdentity(t *testing.T) {
	strategy := inspect.ForKernel("", "  IPyKernel ")
	sections := strategy(map[string]string{
		inspect.MIMEPlain: "\x1b[31mType:\x1b[39m str",
	})
	if sections.TypeName != "str" {
		t.Errorf("normalized alias output = %+v", sections)
	}
}

func TestRegisterLanguage_Duplicate(t *testing.T) {
	if err := inspect.RegisterLanguage("python", inspect.Generic); !errors.Is(err, inspect.ErrAlreadyRegistered) {
		t.Errorf("RegisterLanguage(python) error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterAlias_Duplicate(t *testing.T) {
	if err := inspect.RegisterAlias("python3", inspect.Generic); !errors.Is(err, inspect.ErrAlreadyRegistered) {
		t.Errorf("RegisterAlias(python3) error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegister_EmptyIdentity(t *testing.T) {
	if err := inspect.RegisterLanguage("  ", inspect.Generic); !errors.Is(err, inspect.ErrEmptyIdentity) {
		t.Errorf("RegisterLanguage(blank) error = %v, want ErrEmptyIdentity", err)
	}
	if err := inspect.RegisterAlias("", inspect.Generic); !errors.Is(err, inspect.ErrEmptyIdentity) {
		t.Errorf("RegisterAlias(empty) error = %v, want ErrEmptyIdentity", err)
	}
}

func TestRegisterAlias_NewIdentity(t *testing.T) {
	if err := inspect.RegisterAlias("xeus-test-kernel", inspect.Generic); err != nil {
		t.Fatalf("RegisterAlias() error = %v", err)
	}
	strategy := inspect.ForKernel("", "xeus-test-kernel")
	sections := strategy(map[string]string{inspect.MIMEPlain: "v"})
	if sections.Clean != "v" {
		t.Errorf("registered strategy output = %+v, want generic sections", sections)
	}
}
