package ir

// Row is one record of a dataset.
type Row = Object

// Dataset is an ordered sequence of rows. Query results preserve input
// order unless an ordering clause reorders them.
type Dataset []Object

// DatasetFromValue checks that v is an array of objects and returns it as a
// Dataset. Anything else is an ErrDatasetShape error.
func DatasetFromValue(v Value) (Dataset, error) {
	arr, ok := v.(Array)
	if !ok {
		return nil, NewError(ErrDatasetShape, "top-level value is %s", kindOf(v))
	}
	ds := make(Dataset, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(Object)
		if !ok {
			return nil, NewError(ErrDatasetShape, "element %d is %s, not object", i, kindOf(elem))
		}
		ds[i] = obj
	}
	return ds, nil
}

// Value returns the dataset as an Array value.
func (d Dataset) Value() Array {
	arr := make(Array, len(d))
	for i, row := range d {
		arr[i] = row
	}
	return arr
}

// Clone returns a shallow copy; rows are shared.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

func kindOf(v Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}
