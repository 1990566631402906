package affinity

import (
	"testing"

	"github.com/mickamy/voltgo/value"
	"github.com/mickamy/voltgo/wire"
)

func buildTableFrame(t *testing.T, schema *value.Schema, rows [][]byte) *wire.Buffer {
	t.Helper()
	buf := wire.NewOwned(0)
	must(t, buf.WriteInt32(0))
	must(t, buf.WriteInt8(0))
	must(t, buf.WriteInt16(int16(schema.Len())))
	for _, c := range schema.Columns {
		must(t, buf.WriteInt8(int8(c.Type)))
	}
	for _, c := range schema.Columns {
		must(t, buf.WriteString(c.Name, false))
	}
	must(t, buf.WriteInt32(int32(len(rows))))
	for _, row := range rows {
		must(t, buf.WriteBytesRaw(row))
	}
	must(t, buf.PatchLengthPrefix())
	buf.Flip()
	return buf
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestParseProcedureTableBuildsMetaByName(t *testing.T) {
	t.Parallel()

	schema := value.NewSchema(
		value.Column{Name: "PROCEDURE_NAME", Type: value.String},
		value.Column{Name: "JSON_CONFIG", Type: value.String},
	)
	rb := value.NewRowBuilder(schema)
	must(t, rb.AddString("Insert"))
	must(t, rb.AddString(`{"partitionParameter":0,"readOnly":false,"partitionParameterType":6,"singlePartition":true}`))
	row, err := rb.Bytes()
	if err != nil {
		t.Fatalf("row bytes: %v", err)
	}

	frame := buildTableFrame(t, schema, [][]byte{row})
	table, err := value.ParseTable(frame)
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}

	meta, err := parseProcedureTable(table)
	if err != nil {
		t.Fatalf("parseProcedureTable: %v", err)
	}
	got, ok := meta["Insert"]
	if !ok {
		t.Fatal("expected metadata for Insert")
	}
	if got.PartitionParameterIndex != 0 || got.PartitionParameterType != value.Bigint {
		t.Fatalf("got %+v", got)
	}
}

func TestParseTopoTablesBuildsPartitionMapAndHashinator(t *testing.T) {
	t.Parallel()

	partSchema := value.NewSchema(
		value.Column{Name: "Partition", Type: value.Integer},
		value.Column{Name: "Leader", Type: value.Integer},
	)
	rb1 := value.NewRowBuilder(partSchema)
	must(t, rb1.AddInt32(0))
	must(t, rb1.AddInt32(7))
	row1, err := rb1.Bytes()
	if err != nil {
		t.Fatalf("row1: %v", err)
	}
	partFrame := buildTableFrame(t, partSchema, [][]byte{row1})
	partTable, err := value.ParseTable(partFrame)
	if err != nil {
		t.Fatalf("parse partitions table: %v", err)
	}

	hashSchema := value.NewSchema(value.Column{Name: "HASHCONFIG", Type: value.Varbinary})
	hashBuf := wire.NewOwned(0)
	must(t, hashBuf.WriteInt8(1)) // ELASTIC tag
	must(t, hashBuf.WriteInt32(1))
	must(t, hashBuf.WriteInt32(0))
	must(t, hashBuf.WriteInt32(0))
	hashBuf.Flip()
	payload := hashBuf.Raw()

	rb2 := value.NewRowBuilder(hashSchema)
	must(t, rb2.AddVarbinary(payload))
	row2, err := rb2.Bytes()
	if err != nil {
		t.Fatalf("row2: %v", err)
	}
	hashFrame := buildTableFrame(t, hashSchema, [][]byte{row2})
	hashTable, err := value.ParseTable(hashFrame)
	if err != nil {
		t.Fatalf("parse hashconfig table: %v", err)
	}

	partitionToHost, hashinator, err := parseTopoTables([]*value.Table{partTable, hashTable})
	if err != nil {
		t.Fatalf("parseTopoTables: %v", err)
	}
	if partitionToHost[0] != 7 {
		t.Fatalf("partitionToHost[0] = %d, want 7", partitionToHost[0])
	}
	if got := hashinator.PartitionForFingerprint(500); got != 0 {
		t.Fatalf("partition = %d, want 0", got)
	}
}
