package heap

// RowID is a row's position in insertion order. Rows are never moved or
// removed, so a RowID stays valid for the table's lifetime.
type RowID int
