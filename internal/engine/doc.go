// Package engine implements one context's view of a collaborative session.
//
// An Engine owns a local participant identity, snapshots of the shared
// state and participant list, cursors into the shared logs, and an event
// bus. Contexts never talk to each other; they only read and write the
// shared partition of the store and poll it for changes.
//
// LIFECYCLE:
//
//  1. New(store, sessionKey, opts...) builds an idle engine.
//  2. Bootstrap creates or loads the local identity, joins the shared
//     participant list and fires hangout.apiReady. Resume loads an existing
//     identity without joining, for one-shot tools.
//  3. Start schedules Tick at a fixed interval; Tick can also be called
//     directly. Stop cancels the schedule.
//  4. Close stops the loop, leaves the participant list and optionally
//     purges stored data.
//
// TICK:
//
// Each tick runs four steps in order:
//
//  1. Host UI log: new displayNotice/dismissNotice entries after session
//     start are dispatched oldest first.
//  2. Shared state: diffed against the snapshot; hangout.data.stateChanged.
//  3. Message log: new messages not authored locally are delivered oldest
//     first; hangout.data.messageReceived.
//  4. Participants: reconciled against the snapshot;
//     hangout.participantsAdded, hangout.participantsChanged,
//     hangout.participantsRemoved.
//
// A malformed shared state or participant list halts the loop. Ticks never
// overlap; handlers run on the ticking goroutine and may call back into the
// engine, except for Bootstrap, Resume, Tick and Close.
//
// CONSISTENCY:
//
// Writes to the shared partition are last-write-wins. Two contexts
// submitting deltas in the same polling window may clobber each other; each
// read-modify-write of one record is atomic, nothing more.
package engine
