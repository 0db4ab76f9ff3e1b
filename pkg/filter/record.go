package filter

// Record is one city location. Records are created once at load time and never
// mutated afterwards.
type Record struct {
	ID        string  `json:"id" msgpack:"id"`
	City      string  `json:"city" msgpack:"ci"`
	State     string  `json:"state" msgpack:"st"`
	Latitude  float64 `json:"latitude" msgpack:"la"`
	Longitude float64 `json:"longitude" msgpack:"lo"`

	// Pos is the record's position in its dataset.
	Pos int `json:"-" msgpack:"-"`
}

// Dataset is the ordered, read-only sequence of records.
type Dataset []Record

// NewDataset copies records into a Dataset and assigns positions.
func NewDataset(records []Record) Dataset {
	ds := make(Dataset, len(records))
	copy(ds, records)
	for i := range ds {
		ds[i].Pos = i
	}
	return ds
}

// Len returns the number of records.
func (ds Dataset) Len() int { return len(ds) }
