package model

// Path represents a file system path.
type Path string

// DefinitionKind is the category of a named top-level definition.
type DefinitionKind string

const (
	// DefinitionConst is a constant declaration.
	DefinitionConst DefinitionKind = "const"
	// DefinitionVar is a package-level variable.
	DefinitionVar DefinitionKind = "var"
	// DefinitionType is a named type.
	DefinitionType DefinitionKind = "type"
	// DefinitionFunc is a function.
	DefinitionFunc DefinitionKind = "func"
)

// Order selects how top-level example groups are sequenced.
type Order string

const (
	// OrderDefined runs groups in declaration order.
	OrderDefined Order = "defined"
	// OrderRandom shuffles groups with the run seed.
	OrderRandom Order = "random"
)
