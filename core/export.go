package core

// Sheet is a tabular export: a named sheet with a header row and data rows.
type Sheet struct {
	Name     string
	Filename string
	Header   []string
	Rows     [][]interface{}
}

func (s *Sheet) Append(row ...interface{}) {
	s.Rows = append(s.Rows, row)
}
