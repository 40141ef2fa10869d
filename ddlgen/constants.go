package ddlgen

import (
	"bytes"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/persistcore/registry"
)

// GenerateConstants renders a companion Go source file declaring one
// string constant per table and entry-table name the registry implies,
// named <Type>Table and <Type><Field>EntryTable. Applications that embed
// SQL elsewhere (migrations, reporting queries) import this generated
// package instead of hand-copying ddlgen's naming conventions.
//
// This is the one piece of ddlgen's output that actually is Go source,
// so unlike GenerateDDL it is built with github.com/dave/jennifer rather
// than strings.Builder — jennifer tracks the file's single package
// clause and renders gofmt-equivalent output directly, the same way the
// teacher's compiler/gen.JenniferGenerator builds its client files.
func GenerateConstants(reg *registry.Registry, pkg string) (string, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by ddlgen. DO NOT EDIT.")

	for _, et := range reg.All() {
		f.Const().Id(et.Name + "Table").Op("=").Lit(et.TableName)
	}
	f.Line()
	for _, et := range reg.All() {
		for _, field := range et.Fields {
			if field.Kind != registry.Complex {
				continue
			}
			f.Const().Id(et.Name + field.Name + "EntryTable").Op("=").Lit(field.EntryTableName)
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
