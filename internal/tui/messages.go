package tui

// RowUpdateMsg updates a single row's fields by column name.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// RowAddMsg appends a row that was not known when the program started. A key
// that already exists is treated as an update.
type RowAddMsg struct {
	Key    string
	Fields map[string]string
}

// TransferMsg reports byte progress for a row. Total is -1 when unknown.
type TransferMsg struct {
	Key   string
	Done  int64
	Total int64
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
