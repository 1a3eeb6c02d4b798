// Package all enlaza los módulos incluidos en el binario; importar con _ desde el arranque.
package all

import (
	_ "github.com/jhoicas/appstore-api/internal/modules/assetinventory"
	_ "github.com/jhoicas/appstore-api/internal/modules/knowledgebase"
	_ "github.com/jhoicas/appstore-api/internal/modules/slareports"
)
