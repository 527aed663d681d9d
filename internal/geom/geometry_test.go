/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package geom

import "testing"

func TestRectBasics(t *testing.T) {
	r := R(10, 20, 30, 40)
	if c := r.Center(); c != (Pt{25, 40}) {
		t.Fatalf("center = %+v", c)
	}
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{40, 60}) || r.Contains(Pt{41, 60}) {
		t.Fatalf("contains mismatch")
	}
	if in := r.Inset(5, 5); in != R(15, 25, 20, 30) {
		t.Fatalf("inset = %+v", in)
	}
}

func TestClampInside(t *testing.T) {
	b := R(0, 0, 100, 100)
	if got := R(90, -5, 20, 20).ClampInside(b); got != R(80, 0, 20, 20) {
		t.Fatalf("clamp = %+v", got)
	}
	if got := R(-10, 50, 200, 10).ClampInside(b); got.X != 0 {
		t.Fatalf("oversized rect should align to min edge: %+v", got)
	}
}

func TestDist2(t *testing.T) {
	if d := (Pt{0, 0}).Dist2(Pt{3, 4}); d != 25 {
		t.Fatalf("dist2 = %v", d)
	}
}
