package fcs

// Document is a fully decoded FCS data set. It is built once by Parse and
// never modified afterwards.
type Document struct {
	header   Header
	keywords *Keywords
	data     Data

	parCount uint64
	total    uint64
	nextData uint64
}

// Header returns the HEADER segment fields.
func (d *Document) Header() Header { return d.header }

// Keywords returns the TEXT segment dictionary.
func (d *Document) Keywords() *Keywords { return d.keywords }

// Data returns a copy of the decoded DATA segment. Documents are shared by
// caches and concurrent readers, so callers never see the original slices.
func (d *Document) Data() Data { return d.data.Clone() }

// DataType returns the $DATATYPE of the decoded values.
func (d *Document) DataType() DataType { return d.data.Type }

// ValueCount returns the number of decoded values, $PAR times $TOT.
func (d *Document) ValueCount() int { return d.data.Len() }

// Parameters returns the parameter table. The $PnB, $PnN and $PnR keywords
// are only checked here, so a document whose DATA decoded fine can still
// report a broken parameter table.
func (d *Document) Parameters() ([]Parameter, error) { return d.keywords.Parameters() }

// ParametersCount returns $PAR.
func (d *Document) ParametersCount() uint64 { return d.parCount }

// Gates returns the gate table.
func (d *Document) Gates() ([]Gate, error) { return d.keywords.Gates() }

// Metadata returns the descriptive keywords.
func (d *Document) Metadata() Metadata { return d.keywords.Metadata() }

// TotalEvents returns $TOT.
func (d *Document) TotalEvents() uint64 { return d.total }

// NextData returns the offset of a chained data set, or 0. Chained data sets
// are not followed.
func (d *Document) NextData() uint64 { return d.nextData }

// Event returns the values of event i, one per parameter.
func (d *Document) Event(i int) ([]float64, error) {
	return d.data.Event(i, int(d.parCount))
}
