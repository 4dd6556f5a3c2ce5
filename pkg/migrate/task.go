package migrate

import "fmt"

// Mode : how a source table is paged
type Mode int

const (
	// FullScan : the whole table is read in a single pass, re-runs rely on duplicate detection
	FullScan Mode = iota
	// Marker : pending rows are tracked by a marker column on the source table
	Marker
)

func (m Mode) String() string {
	switch m {
	case FullScan:
		return "full-scan"
	case Marker:
		return "marker"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// DefaultMarkerColumn : tracking column added to resumable source tables
const DefaultMarkerColumn = "mig"

// Rule : value transform applied while translating a field
type Rule int

const (
	RuleNone Rule = iota
	// RuleZeroDate : the mysql zero date becomes MinDate
	RuleZeroDate
)

// FieldMapping : one source column and the destination column it lands in
type FieldMapping struct {
	Source string
	Dest   string
	Rule   Rule
}

// MigrationTask : everything the chunk migrator needs to move one table
type MigrationTask struct {
	Source       string
	Destination  string
	Fields       []FieldMapping
	KeyFields    []string
	ChunkSize    int
	Mode         Mode
	MarkerColumn string
}

func (t *MigrationTask) Name() string {
	return t.Source + " ➜ " + t.Destination
}

// SourceColumns : mapped source columns followed by any key column that is not mapped
func (t *MigrationTask) SourceColumns() []string {
	cols := make([]string, 0, len(t.Fields)+len(t.KeyFields))
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		cols = append(cols, f.Source)
		seen[f.Source] = true
	}
	for _, k := range t.KeyFields {
		if !seen[k] {
			cols = append(cols, k)
		}
	}
	return cols
}

// Pair : the source/destination table pair this task reconciles
func (t *MigrationTask) Pair() TablePair {
	return TablePair{Source: t.Source, Destination: t.Destination}
}

func (t *MigrationTask) Validate() error {
	if t.Source == "" || t.Destination == "" {
		return fmt.Errorf("task needs a source and destination table")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("%s : no fields mapped", t.Name())
	}
	if t.Mode == Marker {
		if t.ChunkSize < 1 {
			return fmt.Errorf("%s : chunk size must be positive, got %d", t.Name(), t.ChunkSize)
		}
		if len(t.KeyFields) == 0 {
			return fmt.Errorf("%s : marker mode needs key fields for ordering and marking", t.Name())
		}
		if t.MarkerColumn == "" {
			return fmt.Errorf("%s : marker mode needs a marker column", t.Name())
		}
	}
	return nil
}

// TablePair : source and destination table compared by the validator
type TablePair struct {
	Source      string
	Destination string
}

// Pairs : reconciliation pairs in task order
func Pairs(tasks []MigrationTask) []TablePair {
	res := make([]TablePair, 0, len(tasks))
	for i := range tasks {
		res = append(res, tasks[i].Pair())
	}
	return res
}

// VaultTasks : the vault tables in dependency order. The provider table is
// small reference data and is copied in one pass, every table after it
// references providers and is migrated in marker chunks.
func VaultTasks(chunkSize int) []MigrationTask {
	return []MigrationTask{
		{
			Source:      "provider",
			Destination: "provider",
			Mode:        FullScan,
			KeyFields:   []string{"PROVIDERID"},
			Fields: []FieldMapping{
				{Source: "PROVIDERID", Dest: "providerid"},
				{Source: "NAME", Dest: "name"},
				{Source: "PASSWORD", Dest: "password"},
				{Source: "IP", Dest: "ip"},
				{Source: "CREATIONDATE", Dest: "creationdate", Rule: RuleZeroDate},
			},
		},
		{
			Source:       "data",
			Destination:  "data",
			Mode:         Marker,
			ChunkSize:    chunkSize,
			MarkerColumn: DefaultMarkerColumn,
			KeyFields:    []string{"PID"},
			Fields: []FieldMapping{
				{Source: "PID", Dest: "vid"},
				{Source: "PAYLOAD", Dest: "payload"},
				{Source: "PROVIDERID", Dest: "providerid"},
				{Source: "CREATIONDATE", Dest: "creationdate"},
			},
		},
		{
			Source:       "search",
			Destination:  "search",
			Mode:         Marker,
			ChunkSize:    chunkSize,
			MarkerColumn: DefaultMarkerColumn,
			KeyFields:    []string{"PID", "WORD"},
			Fields: []FieldMapping{
				{Source: "PID", Dest: "vid"},
				{Source: "WORD", Dest: "word"},
			},
		},
		{
			Source:       "log",
			Destination:  "audit",
			Mode:         Marker,
			ChunkSize:    chunkSize,
			MarkerColumn: DefaultMarkerColumn,
			KeyFields:    []string{"LOGID"},
			Fields: []FieldMapping{
				{Source: "LOGID", Dest: "logid"},
				{Source: "LOGTYPE", Dest: "logtype"},
				{Source: "LOGDATE", Dest: "logdate"},
				{Source: "PROVIDERID", Dest: "providerid"},
				{Source: "LOGCOMMENT", Dest: "logcomment"},
			},
		},
	}
}
