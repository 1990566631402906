package value

// Procedure names a stored procedure call and carries its ordered
// parameters. Built once per invocation; the parameter set is
// positionally matched against the server's declared signature during
// routing and encoding.
type Procedure struct {
	Name   string
	Params *ParameterSet
}

// NewProcedure declares a call to name with parameters of the given
// ordered types. Values are filled in afterward via SetParameters or
// Params.Set.
func NewProcedure(name string, paramTypes ...Type) *Procedure {
	return &Procedure{
		Name:   name,
		Params: NewParameterSet(paramTypes...),
	}
}

// SetParameters sets every parameter in order; it is a convenience over
// calling Params.Set for each index.
func (p *Procedure) SetParameters(values ...any) error {
	for i, v := range values {
		if err := p.Params.Set(i, v); err != nil {
			return err
		}
	}
	return p.Params.Validate()
}

// ParamTypes returns the declared parameter types in order.
func (p *Procedure) ParamTypes() []Type {
	out := make([]Type, p.Params.Len())
	for i := range out {
		out[i], _ = p.Params.TypeAt(i)
	}
	return out
}
