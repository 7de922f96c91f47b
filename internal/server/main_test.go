package server

import (
	"os"
	"testing"

	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}
