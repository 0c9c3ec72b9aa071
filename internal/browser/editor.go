package browser

import "context"

// BufferID identifies an editor buffer.
type BufferID int

// BufferInfo describes an open buffer for bulk bootstrap.
type BufferInfo struct {
	ID        BufferID
	Name      string
	LineCount int
}

// Editor is the capability the editor shim hands to the Controller. Line
// numbers are 0-based.
type Editor interface {
	BufferName(ctx context.Context, id BufferID) (string, error)
	Buffers(ctx context.Context) ([]BufferInfo, error)

	// SetLines overwrites lines starting at start, appending past the end.
	// The callee may keep lines; the Controller never reuses the slice.
	SetLines(ctx context.Context, id BufferID, start int, lines []string) error
	// DeleteLines removes every line from index from to the end.
	DeleteLines(ctx context.Context, id BufferID, from int) error
	// Cursor is the line the cursor is on.
	Cursor(ctx context.Context, id BufferID) (int, error)

	SetModifiable(ctx context.Context, id BufferID, on bool) error
	SetModified(ctx context.Context, id BufferID, on bool) error
	SetTabstop(ctx context.Context, id BufferID, width int) error

	// Edit asks the editor to open name in the current window.
	Edit(ctx context.Context, name string) error
}
