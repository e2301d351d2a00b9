package sheriffsale

// Layout gives the cell position of each field in a listing row. Details
// may be -1 when the table has no details column.
type Layout struct {
	Details   int `json:"details"`
	SaleDate  int `json:"sale_date"`
	Plaintiff int `json:"plaintiff"`
	Defendant int `json:"defendant"`
	Address   int `json:"address"`
	Attorney  int `json:"attorney"`
	Price     int `json:"price"`
	Status    int `json:"status"`
}

// DefaultLayout is the column order of the civilview sales search table.
func DefaultLayout() Layout {
	return Layout{
		Details:   0,
		SaleDate:  2,
		Plaintiff: 3,
		Defendant: 4,
		Address:   5,
		Attorney:  6,
		Price:     7,
		Status:    8,
	}
}

// MinCells is the number of cells a data row needs to carry every field.
func (l Layout) MinCells() int {
	max := l.Details
	for _, i := range []int{l.SaleDate, l.Plaintiff, l.Defendant, l.Address, l.Attorney, l.Price, l.Status} {
		if i > max {
			max = i
		}
	}
	return max + 1
}
