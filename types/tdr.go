package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// TdrExtraction is the structured output the reasoning engine must return for a TDR.
type TdrExtraction struct {
	Proyecto    *ProyectoExtraido `json:"proyecto,omitempty" jsonschema:"description=datos generales del proyecto, opcional"`
	Entregables []Entregable      `json:"entregables" jsonschema:"description=entregables del TDR en orden,required"`
}

// ProyectoExtraido carries the optional project metadata found in the TDR.
type ProyectoExtraido struct {
	NombreProyecto    *string `json:"nombre_proyecto" jsonschema:"description=nombre completo del proyecto"`
	CUI               *string `json:"cui" jsonschema:"description=Código Único de Inversión"`
	EntidadEjecutora  *string `json:"entidad_ejecutora" jsonschema:"description=entidad o municipalidad ejecutora"`
	MontoReferencial  Amount  `json:"monto_referencial" jsonschema:"description=valor referencial en soles"`
	Descripcion       *string `json:"descripcion" jsonschema:"description=resumen breve del proyecto"`
	NumeroEntregables Amount  `json:"numero_entregables" jsonschema:"description=cantidad de entregables"`
}

type Entregable struct {
	NombreEntregable string    `json:"nombre_entregable" jsonschema:"required"`
	PlazoDias        Amount    `json:"plazo_dias" jsonschema:"description=plazo en días calendario o null"`
	Secciones        []Seccion `json:"secciones"`
}

type Seccion struct {
	Nombre            string          `json:"nombre" jsonschema:"required"`
	Orden             int             `json:"orden" jsonschema:"required"`
	EsEstudioCompleto *bool           `json:"es_estudio_completo"`
	TiposDocumento    []TipoDocumento `json:"tipos_documento"`
}

type TipoDocumento struct {
	NombreTipoDocumento string            `json:"nombre_tipo_documento" jsonschema:"required"`
	Orden               int               `json:"orden" jsonschema:"required"`
	ContenidosMinimos   []ContenidoMinimo `json:"contenidos_minimos"`
}

type ContenidoMinimo struct {
	NombreRequisito     string `json:"nombre_requisito" jsonschema:"required"`
	DescripcionCompleta string `json:"descripcion_completa" jsonschema:"required"`
	EsObligatorio       bool   `json:"es_obligatorio" jsonschema:"required"`
	Orden               int    `json:"orden" jsonschema:"required"`
}

// Amount is a currency-like number the model may send as a number or as free text.
// Unparseable text decodes to null instead of failing the whole document.
type Amount struct {
	Value *float64
	// Raw keeps the original text when coercion was needed.
	Raw string
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		a.Value = &x
	case string:
		a.Raw = x
		a.Value = CoerceAmount(x)
	default:
		a.Raw = trimmed
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*a.Value)
}

// Degraded reports a value that was present but could not be coerced.
func (a Amount) Degraded() bool {
	return a.Value == nil && a.Raw != ""
}

// Int truncates the value, nil when absent or outside the int range.
func (a Amount) Int() *int {
	if a.Value == nil {
		return nil
	}
	v := *a.Value
	if math.IsNaN(v) || v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return nil
	}
	n := int(v)
	return &n
}

// CoerceAmount keeps only digits and '.' and parses the rest as a float.
// "S/ 1,234.56" -> 1234.56, "N/D" -> nil.
func CoerceAmount(s string) *float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Normalize fills blank names with positional placeholders ("Sección 2"), gives
// missing orden values their position, then orders every level by orden.
// Deliverables keep arrival order.
func (t *TdrExtraction) Normalize() {
	for i := range t.Entregables {
		e := &t.Entregables[i]
		e.NombreEntregable = nameOr(e.NombreEntregable, "Entregable", i)
		for j := range e.Secciones {
			s := &e.Secciones[j]
			s.Nombre = nameOr(s.Nombre, "Sección", j)
			s.Orden = ordenOr(s.Orden, j)
			for k := range s.TiposDocumento {
				td := &s.TiposDocumento[k]
				td.NombreTipoDocumento = nameOr(td.NombreTipoDocumento, "Tipo", k)
				td.Orden = ordenOr(td.Orden, k)
				for m := range td.ContenidosMinimos {
					c := &td.ContenidosMinimos[m]
					c.NombreRequisito = nameOr(c.NombreRequisito, "Requisito", m)
					c.Orden = ordenOr(c.Orden, m)
				}
				cs := td.ContenidosMinimos
				sort.SliceStable(cs, func(a, b int) bool { return cs[a].Orden < cs[b].Orden })
			}
			tipos := s.TiposDocumento
			sort.SliceStable(tipos, func(a, b int) bool { return tipos[a].Orden < tipos[b].Orden })
		}
		secs := e.Secciones
		sort.SliceStable(secs, func(a, b int) bool { return secs[a].Orden < secs[b].Orden })
	}
}

func nameOr(name, label string, i int) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fmt.Sprintf("%s %d", label, i+1)
}

func ordenOr(orden, i int) int {
	if orden > 0 {
		return orden
	}
	return i + 1
}

// Validate rejects trees whose natural keys would collide. Run it after Normalize.
func (t *TdrExtraction) Validate() error {
	names := make(map[string]bool, len(t.Entregables))
	for i, e := range t.Entregables {
		name := strings.TrimSpace(e.NombreEntregable)
		if names[name] {
			return fmt.Errorf("entregables[%d]: duplicate nombre_entregable %q", i, name)
		}
		names[name] = true

		secOrden := make(map[int]bool, len(e.Secciones))
		for j, s := range e.Secciones {
			path := fmt.Sprintf("entregables[%d].secciones[%d]", i, j)
			if secOrden[s.Orden] {
				return fmt.Errorf("%s: duplicate orden %d", path, s.Orden)
			}
			secOrden[s.Orden] = true

			tipoOrden := make(map[int]bool, len(s.TiposDocumento))
			for k, td := range s.TiposDocumento {
				tpath := fmt.Sprintf("%s.tipos_documento[%d]", path, k)
				if tipoOrden[td.Orden] {
					return fmt.Errorf("%s: duplicate orden %d", tpath, td.Orden)
				}
				tipoOrden[td.Orden] = true

				cOrden := make(map[int]bool, len(td.ContenidosMinimos))
				for m, c := range td.ContenidosMinimos {
					if cOrden[c.Orden] {
						return fmt.Errorf("%s.contenidos_minimos[%d]: duplicate orden %d", tpath, m, c.Orden)
					}
					cOrden[c.Orden] = true
				}
			}
		}
	}
	return nil
}

// Counts returns the number of nodes per level.
func (t *TdrExtraction) Counts() (entregables, secciones, tipos, contenidos int) {
	entregables = len(t.Entregables)
	for _, e := range t.Entregables {
		secciones += len(e.Secciones)
		for _, s := range e.Secciones {
			tipos += len(s.TiposDocumento)
			for _, td := range s.TiposDocumento {
				contenidos += len(td.ContenidosMinimos)
			}
		}
	}
	return
}
