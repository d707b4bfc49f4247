/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Tue Feb  6 10:29:37 2024 mstenber
 * Last modified: Tue Feb  6 10:42:02 2024 mstenber
 * Edit time:     13 min
 *
 */

package mlog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stvp/assert"
)

func TestMlog(t *testing.T) {
	var buf bytes.Buffer
	defer SetLogger(log.New(&buf, "", 0))()

	defer SetPattern("")()
	Printf2("mlog/mlog_test", "hidden %d", 1)
	assert.Equal(t, buf.String(), "")
	assert.True(t, !IsEnabled())

	undo := SetPattern("mlog/")
	assert.True(t, IsEnabled())
	Printf2("mlog/mlog_test", "shown %d", 2)
	Printf2("other/file", "hidden %d", 3)
	// Cached decision path
	Printf2("mlog/mlog_test", "shown %d", 4)
	undo()

	assert.Equal(t, buf.String(), "shown 2\nshown 4\n")
}
