// Пакет kpi — разбор CSV-ресурса с KPI и группировка по измерениям.
//
// Формат ресурса: UTF-8, строки через '\n', первая строка — заголовок
// (не проверяется), поля через ';', минимум MinFields полей в строке.
// Некорректные строки отбрасываются молча: разбор никогда не завершается
// ошибкой из-за отдельной строки.
package kpi

import (
	"strings"

	"github.com/bigkaa/ecoportal/internal/domain/model"
)

const (
	// Delimiter — разделитель полей.
	Delimiter = ";"
	// MinFields — минимальное количество полей в принимаемой строке.
	MinFields = 13
	// SkippedColumn — колонка, которая намеренно не используется.
	SkippedColumn = 4
)

// Field — имя поля KPIRecord в таблице колонок.
type Field string

// Поля KPIRecord.
const (
	FieldDimension    Field = "dimension"
	FieldSubdimension Field = "subdimension"
	FieldIndicator    Field = "indicator"
	FieldStatus       Field = "status"
	FieldDescription  Field = "description"
	FieldFormula      Field = "formula"
	FieldData         Field = "data"
	FieldSource       Field = "source"
	FieldImportance   Field = "importance"
	FieldFrequency    Field = "frequency"
	FieldSourceDetail Field = "sourceDetail"
	FieldBibliography Field = "bibliography"
)

// column — соответствие поля записи номеру колонки во входной строке.
type column struct {
	field Field
	index int
	set   func(r *model.KPIRecord, v string)
}

// columns — таблица колонок. Колонка SkippedColumn (4) пропущена.
var columns = []column{
	{FieldDimension, 0, func(r *model.KPIRecord, v string) { r.Dimension = v }},
	{FieldSubdimension, 1, func(r *model.KPIRecord, v string) { r.Subdimension = v }},
	{FieldIndicator, 2, func(r *model.KPIRecord, v string) { r.Indicator = v }},
	{FieldStatus, 3, func(r *model.KPIRecord, v string) { r.Status = v }},
	{FieldDescription, 5, func(r *model.KPIRecord, v string) { r.Description = v }},
	{FieldFormula, 6, func(r *model.KPIRecord, v string) { r.Formula = v }},
	{FieldData, 7, func(r *model.KPIRecord, v string) { r.Data = v }},
	{FieldSource, 8, func(r *model.KPIRecord, v string) { r.Source = v }},
	{FieldImportance, 9, func(r *model.KPIRecord, v string) { r.Importance = v }},
	{FieldFrequency, 10, func(r *model.KPIRecord, v string) { r.Frequency = v }},
	{FieldSourceDetail, 11, func(r *model.KPIRecord, v string) { r.SourceDetail = v }},
	{FieldBibliography, 12, func(r *model.KPIRecord, v string) { r.Bibliography = v }},
}

// ColumnIndex возвращает номер входной колонки для поля.
// ok == false, если поле не входит в таблицу.
func ColumnIndex(f Field) (index int, ok bool) {
	for _, c := range columns {
		if c.field == f {
			return c.index, true
		}
	}
	return 0, false
}

// Dataset — результат одного прохода разбора.
type Dataset struct {
	// Records — принятые записи в порядке следования во входе
	Records []model.KPIRecord
	// Dimensions — уникальные измерения в порядке первого появления
	Dimensions []string
	// Dropped — количество отброшенных строк (короткие или без измерения).
	// Только для диагностики, на принятые записи не влияет.
	Dropped int
}

// Group — записи одного измерения.
type Group struct {
	Dimension string
	Records   []model.KPIRecord
}

// Empty возвращает пустой набор (ресурс недоступен или пуст).
func Empty() Dataset {
	return Dataset{
		Records:    make([]model.KPIRecord, 0),
		Dimensions: make([]string, 0),
	}
}

// Parse разбирает текст ресурса в Dataset.
func Parse(text string) Dataset {
	lines := strings.Split(text, "\n")

	ds := Empty()
	seen := make(map[string]struct{})

	// Строка 0 — заголовок
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		values := strings.Split(line, Delimiter)
		if len(values) < MinFields {
			ds.Dropped++
			continue
		}

		rec, ok := parseRecord(values)
		if !ok {
			ds.Dropped++
			continue
		}

		ds.Records = append(ds.Records, rec)
		if _, dup := seen[rec.Dimension]; !dup {
			seen[rec.Dimension] = struct{}{}
			ds.Dimensions = append(ds.Dimensions, rec.Dimension)
		}
	}

	return ds
}

// parseRecord заполняет запись по таблице колонок.
// Возвращает false, если измерение пустое.
func parseRecord(values []string) (model.KPIRecord, bool) {
	var rec model.KPIRecord
	for _, c := range columns {
		v := ""
		if c.index < len(values) {
			v = strings.TrimSpace(values[c.index])
		}
		c.set(&rec, v)
	}
	return rec, rec.Dimension != ""
}

// ByDimension возвращает записи измерения в исходном порядке.
func (d Dataset) ByDimension(dimension string) []model.KPIRecord {
	result := make([]model.KPIRecord, 0)
	for _, r := range d.Records {
		if r.Dimension == dimension {
			result = append(result, r)
		}
	}
	return result
}

// Count возвращает количество записей измерения.
func (d Dataset) Count(dimension string) int {
	n := 0
	for _, r := range d.Records {
		if r.Dimension == dimension {
			n++
		}
	}
	return n
}

// Groups возвращает записи, сгруппированные по измерениям
// в порядке первого появления измерения.
func (d Dataset) Groups() []Group {
	index := make(map[string]int, len(d.Dimensions))
	groups := make([]Group, len(d.Dimensions))
	for i, dim := range d.Dimensions {
		index[dim] = i
		groups[i].Dimension = dim
	}
	for _, r := range d.Records {
		i, ok := index[r.Dimension]
		if !ok {
			continue
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// IsEmpty сообщает, что в наборе нет ни одной записи.
func (d Dataset) IsEmpty() bool {
	return len(d.Records) == 0
}
