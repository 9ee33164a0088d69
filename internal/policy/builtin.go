package policy

// readOnlyAllow covers inspection commands that do not modify state.
var readOnlyAllow = []string{
	`^grep\s`,
	`^cat\s`,
	`^ls(\s|$)`,
	`^find\s`,
	`^wc\s`,
	`^head\s`,
	`^tail\s`,
	`^tree(\s|$)`,
	`^file\s`,
	`^stat\s`,
	`^pwd$`,
	`^echo\s`,
	`^which\s`,
	`^type\s`,
	`^env$`,
	`^printenv`,
}

// buildAllow adds build and test tooling, matched on the sub-command.
var buildAllow = []string{
	`^make(\s|$)`,
	`^npm run\s`,
	`^npm test`,
	`^pip list`,
	`^pip show\s`,
	`^python -m pytest`,
	`^python -m py_compile`,
	`^cargo check`,
	`^cargo test`,
	`^cargo build`,
	`^go build`,
	`^go test`,
	`^go vet`,
}

var buildDeny = []string{
	`npm install`,
	`pip install`,
	`cargo install`,
	`go install`,
	`\bsudo\b`,
	`\bsu\s`,
}

func seq() *Concurrency {
	c := Sequential()
	return &c
}

func par(n int) *Concurrency {
	c := Parallel(n)
	return &c
}

// Builtins returns the definitions of the built-in policies, in
// dependency order.
func Builtins() []Definition {
	return []Definition{
		{
			ID:          ReadOnly,
			Description: "Inspection commands only",
			Allow:       readOnlyAllow,
			Concurrency: par(4),
		},
		{
			ID:          Default,
			Description: "Same allowlist as readonly",
			Extends:     ReadOnly,
			Concurrency: par(4),
		},
		{
			ID:          Build,
			Description: "Readonly plus build and test tooling, one at a time",
			Extends:     ReadOnly,
			Allow:       buildAllow,
			Deny:        buildDeny,
			Concurrency: seq(),
		},
	}
}
