package affinity

import (
	"encoding/json"
	"fmt"

	"github.com/mickamy/voltgo/value"
)

// ParameterNone marks "no partition parameter" per original_source's
// ProcedureInfo, where partitionParameter = -1 means the procedure
// carries no partitioning hint (it is either read-everywhere or
// genuinely multipartition).
const ParameterNone = -1

// ProcedureMeta is the routing-relevant slice of @SystemCatalog
// ("PROCEDURES")'s per-procedure JSON config, grounded in
// original_source/src/Hashinator.cpp's ProcedureInfo(jsonText) parser:
// `{"readOnly":true,"singlePartition":false}` or
// `{"partitionParameter":0,"readOnly":true,"partitionParameterType":6,"singlePartition":true}`.
type ProcedureMeta struct {
	Name                    string
	ReadOnly                bool
	IsMultipart             bool
	PartitionParameterIndex int
	PartitionParameterType  value.Type
}

type procedureInfoJSON struct {
	ReadOnly               bool `json:"readOnly"`
	SinglePartition        bool `json:"singlePartition"`
	PartitionParameter     *int `json:"partitionParameter"`
	PartitionParameterType *int `json:"partitionParameterType"`
}

// ParseProcedureMeta decodes one procedure's json_config column from
// @SystemCatalog("PROCEDURES").
func ParseProcedureMeta(name string, jsonConfig string) (ProcedureMeta, error) {
	var raw procedureInfoJSON
	if err := json.Unmarshal([]byte(jsonConfig), &raw); err != nil {
		return ProcedureMeta{}, fmt.Errorf("affinity: parse procedure metadata for %s: %w", name, err)
	}
	meta := ProcedureMeta{
		Name:                    name,
		ReadOnly:                raw.ReadOnly,
		IsMultipart:             !raw.SinglePartition,
		PartitionParameterIndex: ParameterNone,
		PartitionParameterType:  value.Invalid,
	}
	if raw.PartitionParameter != nil {
		meta.PartitionParameterIndex = *raw.PartitionParameter
	}
	if raw.PartitionParameterType != nil {
		meta.PartitionParameterType = value.Type(*raw.PartitionParameterType)
	}
	return meta, nil
}

// HasPartitionParameter reports whether m names a concrete partitioning
// parameter, per original_source's PARAMETER_NONE (-1) sentinel.
func (m ProcedureMeta) HasPartitionParameter() bool {
	return m.PartitionParameterIndex != ParameterNone
}
