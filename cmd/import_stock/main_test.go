package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestReadStockCSV_CabeceraYComaDecimal(t *testing.T) {
	in := "item_id;cantidad\ncola;10\nagua; 2,5\n\n"
	lines, err := readStockCSV(strings.NewReader(in), "utf-8")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "cola", lines[0].itemID)
	assert.Equal(t, 2, lines[0].line)
	assert.Equal(t, "2.5", lines[1].quantity.String())
}

func TestReadStockCSV_Cp1251(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("сок;3\n")
	require.NoError(t, err)

	lines, err := readStockCSV(bytes.NewReader([]byte(encoded)), "cp1251")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "сок", lines[0].itemID)
}

func TestReadStockCSV_LineasInvalidas(t *testing.T) {
	in := "cola;10\nagua;-1\nsolo\nte;x\n"
	lines, err := readStockCSV(strings.NewReader(in), "")
	require.Error(t, err)
	assert.Len(t, lines, 1)
	assert.Contains(t, err.Error(), "línea 2")
	assert.Contains(t, err.Error(), "línea 3")
	assert.Contains(t, err.Error(), "línea 4")
}

func TestReadStockCSV_CharsetDesconocido(t *testing.T) {
	_, err := readStockCSV(strings.NewReader(""), "ebcdic")
	assert.Error(t, err)
}
