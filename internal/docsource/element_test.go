// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docsource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

const listingHTML = `<html><body>
<ul class="papers">
  <li><a class="title" href="/paper/1">  First Paper  </a><a class="pdf" href="files/1.pdf">PDF</a></li>
  <li><a class="title" href="https://other.example/2">Second Paper</a></li>
</ul>
</body></html>`

func TestSnapshotQuery(t *testing.T) {
	snap, err := parseSnapshot(strings.NewReader(listingHTML), "https://portal.example/proceedings/2023/")
	require.NoError(t, err)

	items := snap.query("ul.papers li")
	require.Len(t, items, 2)

	title, ok := items[0].FindOne("a.title")
	require.True(t, ok)
	assert.Equal(t, "  First Paper  ", title.Text())

	href, ok := title.Attr("href")
	require.True(t, ok)
	assert.Equal(t, "https://portal.example/paper/1", href)

	pdf, ok := items[0].FindOne("a.pdf")
	require.True(t, ok)
	href, _ = pdf.Attr("href")
	assert.Equal(t, "https://portal.example/proceedings/2023/files/1.pdf", href)

	other, _ := items[1].FindOne("a.title")
	href, _ = other.Attr("href")
	assert.Equal(t, "https://other.example/2", href)

	_, ok = items[1].FindOne("a.pdf")
	assert.False(t, ok)
}

func TestSnapshotQueryOneMissing(t *testing.T) {
	snap, err := parseSnapshot(strings.NewReader(listingHTML), "https://portal.example/")
	require.NoError(t, err)

	_, err = snap.queryOne("table")
	assert.ErrorIs(t, err, types.ErrElementNotFound)
}

func TestElementParentAndIs(t *testing.T) {
	snap, err := parseSnapshot(strings.NewReader(listingHTML), "https://portal.example/")
	require.NoError(t, err)

	link, err := snap.queryOne("a.pdf")
	require.NoError(t, err)
	parent, ok := link.Parent()
	require.True(t, ok)
	assert.True(t, parent.Is("li"))
	assert.False(t, parent.Is("ul"))
}

func TestZeroElement(t *testing.T) {
	var e Element
	_, ok := e.Attr("href")
	assert.False(t, ok)
	assert.Empty(t, e.Text())
	assert.Nil(t, e.Find("a"))
	_, ok = e.Parent()
	assert.False(t, ok)
	assert.False(t, e.Is("a"))
}
