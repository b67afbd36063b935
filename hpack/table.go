package hpack

// IndexedTable is the address space of RFC 7541 Section 2.3.3: the
// static table at indexes 1..61 followed by the dynamic table from 62
// up, newest dynamic entry first. Index 0 is reserved on the wire for
// "name is a literal".
type IndexedTable struct {
	dynamic *DynamicTable
}

func NewIndexedTable(maxDynamicSize uint32) *IndexedTable {
	var t IndexedTable
	t.dynamic = NewDynamicTable(maxDynamicSize)
	return &t
}

// Dynamic exposes the dynamic half for insertion and size updates.
func (t *IndexedTable) Dynamic() *DynamicTable {
	return t.dynamic
}

// Entry resolves a 1-based wire index.
func (t *IndexedTable) Entry(index uint64) (HeaderField, bool) {
	if index == 0 {
		return HeaderField{}, false
	}
	if index <= staticTableSize {
		return staticTable[index], true
	}
	return t.dynamic.Entry(int(index - staticTableSize - 1))
}

// maxIndex is the largest currently valid wire index.
func (t *IndexedTable) maxIndex() int {
	return staticTableSize + t.dynamic.Len()
}

// FirstMatch scans the static table and then the dynamic table for an
// exact (name, value) match and returns its index with exact=true. If
// only the name occurs anywhere, the first such index is returned with
// exact=false. Returns (0, false) when the name is unknown.
func (t *IndexedTable) FirstMatch(name, value string) (index uint64, exact bool) {
	var nameIndex uint64
	for i := 1; i <= staticTableSize; i++ {
		if staticTable[i].Name != name {
			continue
		}
		if staticTable[i].Value == value {
			return uint64(i), true
		}
		if nameIndex == 0 {
			nameIndex = uint64(i)
		}
	}
	for i := 0; i < t.dynamic.Len(); i++ {
		f, _ := t.dynamic.Entry(i)
		if f.Name != name {
			continue
		}
		if f.Value == value {
			return uint64(staticTableSize + 1 + i), true
		}
		if nameIndex == 0 {
			nameIndex = uint64(staticTableSize + 1 + i)
		}
	}
	return nameIndex, false
}
