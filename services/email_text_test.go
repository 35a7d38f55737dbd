package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToText(t *testing.T) {
	text, err := htmlToText(`<!DOCTYPE html>
<html>
<head><title>Ignored</title><style>p { color: red; }</style></head>
<body>
  <h2>Fee reminder</h2>
  <p>Hello   Jane,</p>
  <table>
    <tr><td>Course</td><td><strong>Physics</strong></td></tr>
    <tr><td>Balance</td><td>250.50</td></tr>
  </table>
  <p>Line one<br>Line two</p>
</body>
</html>`)
	require.NoError(t, err)

	assert.Equal(t, "Fee reminder\nHello Jane,\nCourse: Physics\nBalance: 250.50\nLine one\nLine two", text)
	assert.NotContains(t, text, "Ignored")
	assert.NotContains(t, text, "color")
}
