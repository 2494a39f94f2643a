package game

// PersistTableState keeps the latest view of every table so observers can
// still read a table after its session has been evicted.
type PersistTableState interface {
	Load(gameCode string) (*TableView, error)
	Save(gameCode string, view *TableView) error
	Remove(gameCode string) error
}
