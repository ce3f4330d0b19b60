package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCommandSkipsEmailByDefault(t *testing.T) {
	flag := scanCmd.Flags().Lookup("skip-email")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}
