// go-nci
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nci.
//
// go-nci is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nci is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nci; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package nci

import (
	"context"

	"github.com/looplab/fsm"
)

// I93State is the coarse state of an ISO15693 session.
type I93State string

const (
	I93StateIdle       I93State = "idle"
	I93StateUpdateNDEF I93State = "update_ndef"
)

const (
	i93EventUpdate   = "update"
	i93EventComplete = "complete"
	i93EventAbort    = "abort"
)

type i93StateMachine struct {
	fsm *fsm.FSM
}

func newI93StateMachine(callbacks fsm.Callbacks) *i93StateMachine {
	return &i93StateMachine{
		fsm: fsm.NewFSM(
			string(I93StateIdle),
			fsm.Events{
				{Name: i93EventUpdate, Src: []string{string(I93StateIdle)}, Dst: string(I93StateUpdateNDEF)},
				{Name: i93EventComplete, Src: []string{string(I93StateUpdateNDEF)}, Dst: string(I93StateIdle)},
				{Name: i93EventAbort, Src: []string{string(I93StateUpdateNDEF)}, Dst: string(I93StateIdle)},
			},
			callbacks,
		),
	}
}

func (m *i93StateMachine) Current() I93State {
	return I93State(m.fsm.Current())
}

func (m *i93StateMachine) Is(state I93State) bool {
	return m.fsm.Is(string(state))
}

// fire triggers event and reports whether a transition happened. Events that
// are not allowed from the current state are ignored.
func (m *i93StateMachine) fire(ctx context.Context, event string) (bool, error) {
	if !m.fsm.Can(event) {
		return false, nil
	}
	if err := m.fsm.Event(ctx, event); err != nil {
		return false, err
	}
	return true, nil
}

// force puts the machine into state without running callbacks.
func (m *i93StateMachine) force(state I93State) {
	m.fsm.SetState(string(state))
}
