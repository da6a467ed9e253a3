package health

import "testing"

func TestCheckerGreenWhenAllCommandsSucceed(t *testing.T) {
	c := NewChecker(t.TempDir(), []string{"true", "true"})
	res := c.Run()
	if !res.Green {
		t.Fatalf("expected green, got %+v", res)
	}
}

func TestCheckerRedStopsAtFirstFailure(t *testing.T) {
	c := NewChecker(t.TempDir(), []string{"false", "true"})
	res := c.Run()
	if res.Green {
		t.Fatal("expected red")
	}
	if res.Failed != "false" {
		t.Fatalf("expected the failing command to be recorded, got %q", res.Failed)
	}
}

func TestCheckerDefaultsToMakeTest(t *testing.T) {
	c := NewChecker(t.TempDir(), nil)
	if len(c.Commands) != 1 || c.Commands[0] != "make test" {
		t.Fatalf("expected default command, got %v", c.Commands)
	}
}

func TestCheckerCapturesOutput(t *testing.T) {
	c := NewChecker(t.TempDir(), []string{"echo hello"})
	res := c.Run()
	if !res.Green {
		t.Fatalf("expected green, got %+v", res)
	}
	if res.Output == "" {
		t.Fatal("expected captured output")
	}
}
