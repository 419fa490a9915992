package migrations

// GoFileTemplate scaffolds a Go migration factory for `migrun new --go`
const GoFileTemplate = `package {{.PackageName}}

import (
	"context"

	"github.com/toolsascode/migrun/migrations"
)

// {{.FuncName}} creates migration {{.Version}}_{{.Name}}
func {{.FuncName}}() migrations.Migration {
	return migrations.NewFunc({{.Version}}, "{{.Name}}",
		func(ctx context.Context, db migrations.Handle) error {
			_, err := db.ExecContext(ctx, ` + "``" + `)
			return err
		},
		func(ctx context.Context, db migrations.Handle) error {
			_, err := db.ExecContext(ctx, ` + "``" + `)
			return err
		},
	)
}
`

// TemplateData fills GoFileTemplate
type TemplateData struct {
	PackageName string
	FuncName    string
	Version     int64
	Name        string
}
