package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xdg/warden/internal/validator"
)

func TestCheck(t *testing.T) {
	cfg, _ := testEnv(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     validator.Verdict
	}{
		{"allowed", []string{"--", "ls", "-la"}, 0, validator.Allowed},
		{"blocklisted", []string{"--", "sudo", "ls"}, exitBlocked, validator.BlockedByPattern},
		{"not allowlisted", []string{"-p", "readonly", "--", "markdownlint", "README.md"}, exitBlocked, validator.DeniedByPolicy},
		{"custom policy", []string{"-p", "docs", "--", "markdownlint", "README.md"}, 0, validator.Allowed},
		{"unknown policy", []string{"-p", "nope", "--", "ls"}, exitBlocked, validator.DeniedByPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfg, "check", "--json"}, tt.args...)
			stdout, _, err := runCLI(t, args...)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("check error = %v", err)
				}
			} else {
				wantExitCode(t, err, tt.wantCode)
			}

			var d validator.Decision
			if err := json.Unmarshal([]byte(stdout), &d); err != nil {
				t.Fatalf("check output: %v\n%s", err, stdout)
			}
			if d.Verdict != tt.want {
				t.Errorf("Verdict = %v, want %v", d.Verdict, tt.want)
			}
		})
	}
}

func TestPolicyList(t *testing.T) {
	cfg, _ := testEnv(t)

	stdout, _, err := runCLI(t, "--config", cfg, "policy", "list")
	if err != nil {
		t.Fatalf("policy list error = %v", err)
	}
	for _, want := range []string{"NAME", "build", "default", "docs", "readonly", "sequential", "parallel(4)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("policy list missing %q\n%s", want, stdout)
		}
	}
}

func TestPolicyShow(t *testing.T) {
	cfg, _ := testEnv(t)

	stdout, _, err := runCLI(t, "--config", cfg, "policy", "show", "docs")
	if err != nil {
		t.Fatalf("policy show error = %v", err)
	}
	for _, want := range []string{"name: docs", "extends: readonly", "concurrency: parallel(4)", `^markdownlint\s`, `^ls(\s|$)`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("policy show missing %q\n%s", want, stdout)
		}
	}

	if _, _, err := runCLI(t, "--config", cfg, "policy", "show", "missing"); err == nil {
		t.Error("policy show for an unknown policy succeeded")
	}
}

func TestPolicyBlocklist(t *testing.T) {
	stdout, _, err := runCLI(t, "policy", "blocklist")
	if err != nil {
		t.Fatalf("policy blocklist error = %v", err)
	}
	for _, want := range []string{"CATEGORY", "recursive_delete", `\bsudo\b`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("blocklist missing %q\n%s", want, stdout)
		}
	}
}
