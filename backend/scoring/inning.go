// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import "fmt"

// Inning is the current inning number and half. Number is never below 1.
type Inning struct {
	Number int
	Top    bool
}

// FirstInning is the top of the first.
var FirstInning = Inning{Number: 1, Top: true}

// Advance moves to the next half inning.
func (in Inning) Advance() Inning {
	in = in.clamp()
	if in.Top {
		return Inning{Number: in.Number, Top: false}
	}
	return Inning{Number: in.Number + 1, Top: true}
}

// Retreat moves to the previous half inning. The top of the first is a floor.
func (in Inning) Retreat() Inning {
	in = in.clamp()
	if !in.Top {
		return Inning{Number: in.Number, Top: true}
	}
	if in.Number > 1 {
		return Inning{Number: in.Number - 1, Top: false}
	}
	return in
}

func (in Inning) clamp() Inning {
	if in.Number < 1 {
		in.Number = 1
	}
	return in
}

func (in Inning) String() string {
	half := "表"
	if !in.Top {
		half = "裏"
	}
	return fmt.Sprintf("%d回%s", in.Number, half)
}
