// Package interaction routes control-panel button presses, form submissions,
// and selections to the access engine and turns results into private replies.
//
// Every interaction re-resolves the caller's room from live state, including
// the selection that completes a kick. Nothing is carried between the list
// and the selection except the chosen member id.
package interaction
