// Package platform defines what tempvoice needs from the chat platform.
//
// # Contract
//
// Platform covers channel creation and deletion, member moves, channel edits,
// permission overwrites, effective permission evaluation, private notices, and
// posting the control panel. Every call may block and may fail. Callers wrap
// failures with Wrap so they surface as *Error, the collaborator error kind.
//
// # Capabilities
//
// Permission is a small bit set (PermView, PermConnect, PermManage,
// PermMoveMembers, PermSendMessages) that adapters map onto native flags.
// Overwrites grant or deny those bits to a role or member on one channel;
// a deny wins over an allow.
//
// # Testing
//
// MockPlatform is an in-memory implementation with member voice state,
// per-operation failure injection, and call counting. The Discord adapter
// lives in the discord subpackage.
package platform
