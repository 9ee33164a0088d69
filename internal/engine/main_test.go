package engine

import (
	"os"
	"testing"

	"github.com/xdg/warden/internal/sandbox"
)

func TestMain(m *testing.M) {
	sandbox.MaybeInit()
	os.Exit(m.Run())
}
