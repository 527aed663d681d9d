/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(2*time.Second, func() { fired++ })

	c.Advance(1999 * time.Millisecond)
	assert.Equal(t, 0, fired)
	c.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	c.Advance(time.Hour)
	assert.Equal(t, 1, fired, "one-shot timer fired twice")
	assert.Equal(t, epoch.Add(time.Hour+2*time.Second), c.Now())
}

func TestFakeStopAndReset(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	tm := c.AfterFunc(time.Second, func() { fired++ })
	require.True(t, tm.Stop())
	require.False(t, tm.Stop())
	c.Advance(2 * time.Second)
	assert.Equal(t, 0, fired)

	assert.False(t, tm.Reset(time.Second))
	c.Advance(500 * time.Millisecond)
	assert.True(t, tm.Reset(time.Second), "reset of pending timer reports active")
	c.Advance(900 * time.Millisecond)
	assert.Equal(t, 0, fired)
	c.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)
	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(time.Second, func() {
		order = append(order, "a")
		c.AfterFunc(time.Second, func() { order = append(order, "b") })
	})
	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestFakeNonPositiveDelayRunsImmediately(t *testing.T) {
	c := Fake(epoch)
	ran := false
	tm := c.AfterFunc(0, func() { ran = true })
	assert.True(t, ran)
	assert.False(t, tm.Stop())
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real timer did not fire")
	}
}
