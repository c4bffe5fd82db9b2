package main

import (
	"testing"

	_ "github.com/odyssey-erp/odyssey-receivables/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
