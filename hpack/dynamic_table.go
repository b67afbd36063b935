package hpack

// DynamicTable is the FIFO table of RFC 7541 Section 2.3.2. Entry 0 is
// the most recently inserted field; eviction happens at the tail.
// The byte budget counts Size() of every entry (len(name)+len(value)+32).
type DynamicTable struct {
	entries []HeaderField
	size    uint32
	maxSize uint32
}

// DefaultDynamicTableSize is SETTINGS_HEADER_TABLE_SIZE's initial value,
// RFC 7540 Section 6.5.2.
const DefaultDynamicTableSize = 4096

func NewDynamicTable(maxSize uint32) *DynamicTable {
	var t DynamicTable
	t.entries = make([]HeaderField, 0, 16)
	t.maxSize = maxSize
	return &t
}

// Len reports the number of entries.
func (t *DynamicTable) Len() int {
	return len(t.entries)
}

// Size reports the current byte cost of all entries.
func (t *DynamicTable) Size() uint32 {
	return t.size
}

// MaxSize reports the byte budget.
func (t *DynamicTable) MaxSize() uint32 {
	return t.maxSize
}

// Entry returns the field at 0-based dynamic index i (0 = newest).
func (t *DynamicTable) Entry(i int) (HeaderField, bool) {
	if i < 0 || i >= len(t.entries) {
		return HeaderField{}, false
	}
	return t.entries[i], true
}

// Insert adds a field, evicting from the oldest end until the budget
// holds. A field larger than the whole budget empties the table and is
// itself not stored; per RFC 7541 Section 4.4 that is not an error.
func (t *DynamicTable) Insert(name, value string) {
	f := HeaderField{Name: name, Value: value}
	cost := f.Size()
	if cost > t.maxSize {
		t.entries = t.entries[:0]
		t.size = 0
		return
	}
	t.evict(t.maxSize - cost)
	t.entries = append(t.entries, HeaderField{})
	copy(t.entries[1:], t.entries)
	t.entries[0] = f
	t.size += cost
}

// SetMaxSize changes the byte budget and evicts until it holds.
func (t *DynamicTable) SetMaxSize(maxSize uint32) {
	t.maxSize = maxSize
	t.evict(maxSize)
}

func (t *DynamicTable) evict(budget uint32) {
	n := len(t.entries)
	for t.size > budget {
		n--
		t.size -= t.entries[n].Size()
		t.entries[n] = HeaderField{}
	}
	t.entries = t.entries[:n]
}
