package kpi

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

const header = "Dimensión;Subdimensión;Indicador;Estado;Código;Descripción;Fórmula;Datos;Origen;Importancia;Frecuencia;Fuente;Bibliografía"

// row собирает строку из 13 полей с заданными измерением и индикатором.
func row(dimension, indicator string) string {
	return fmt.Sprintf("%s;Sub;%s;ok;X;Desc;Formula;Data;Src;Alta;Mensual;Detail;Biblio", dimension, indicator)
}

func TestParse_SingleRecord(t *testing.T) {
	ds := Parse("h1;h2;h3\nTech;Sub;Ind1;ok;X;Desc;Formula;Data;Src;Alta;Mensual;Detail;Biblio")

	if len(ds.Records) != 1 {
		t.Fatalf("записей = %d, ожидается 1", len(ds.Records))
	}
	rec := ds.Records[0]
	if rec.Dimension != "Tech" {
		t.Errorf("Dimension = %q, ожидается Tech", rec.Dimension)
	}
	if rec.Importance != "Alta" {
		t.Errorf("Importance = %q, ожидается Alta", rec.Importance)
	}
	if ClassifyImportance(rec.Importance) != ImportanceHigh {
		t.Errorf("ClassifyImportance(%q) = %q, ожидается high", rec.Importance, ClassifyImportance(rec.Importance))
	}
	// Колонка 4 ("X") не попадает ни в одно поле
	if rec.Description != "Desc" || rec.Status != "ok" {
		t.Errorf("сдвиг колонок: Status=%q Description=%q", rec.Status, rec.Description)
	}
	if rec.Bibliography != "Biblio" || rec.SourceDetail != "Detail" || rec.Frequency != "Mensual" {
		t.Errorf("хвостовые поля разобраны неверно: %+v", rec)
	}
	if !reflect.DeepEqual(ds.Dimensions, []string{"Tech"}) {
		t.Errorf("Dimensions = %v, ожидается [Tech]", ds.Dimensions)
	}
}

func TestParse_ShortRowDropped(t *testing.T) {
	text := strings.Join([]string{header, row("Tech", "I1"), "A;B;C;D;E"}, "\n")
	ds := Parse(text)

	if len(ds.Records) != 1 {
		t.Fatalf("записей = %d, ожидается 1", len(ds.Records))
	}
	if ds.Dropped != 1 {
		t.Errorf("Dropped = %d, ожидается 1", ds.Dropped)
	}
}

func TestParse_EdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantCount  int
		wantDrops  int
		wantDims   []string
	}{
		{
			name:      "пустой текст",
			text:      "",
			wantCount: 0,
			wantDims:  []string{},
		},
		{
			name:      "только заголовок",
			text:      header,
			wantCount: 0,
			wantDims:  []string{},
		},
		{
			name:      "заголовок не проверяется и всегда пропускается",
			text:      row("Header", "H") + "\n" + row("Tech", "I1"),
			wantCount: 1,
			wantDims:  []string{"Tech"},
		},
		{
			name:      "пустые строки и CRLF",
			text:      header + "\r\n" + row("Tech", "I1") + "\r\n\r\n   \n" + row("Gov", "I2") + "\n",
			wantCount: 2,
			wantDims:  []string{"Tech", "Gov"},
		},
		{
			name:      "пустое измерение отбрасывается",
			text:      header + "\n" + row("   ", "I1") + "\n" + row("Tech", "I2"),
			wantCount: 1,
			wantDrops: 1,
			wantDims:  []string{"Tech"},
		},
		{
			name:      "12 полей отбрасываются",
			text:      header + "\n" + strings.Repeat("a;", 11) + "a",
			wantCount: 0,
			wantDrops: 1,
			wantDims:  []string{},
		},
		{
			name:      "лишние поля допускаются",
			text:      header + "\n" + row("Tech", "I1") + ";extra;more",
			wantCount: 1,
			wantDims:  []string{"Tech"},
		},
		{
			name:      "запятые не являются разделителем",
			text:      header + "\n" + "Tech,Sub,Ind,ok,X,D,F,Da,S,Alta,M,SD,B",
			wantCount: 0,
			wantDrops: 1,
			wantDims:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Parse(tt.text)
			if len(ds.Records) != tt.wantCount {
				t.Errorf("записей = %d, ожидается %d", len(ds.Records), tt.wantCount)
			}
			if ds.Dropped != tt.wantDrops {
				t.Errorf("Dropped = %d, ожидается %d", ds.Dropped, tt.wantDrops)
			}
			if !reflect.DeepEqual(ds.Dimensions, tt.wantDims) {
				t.Errorf("Dimensions = %v, ожидается %v", ds.Dimensions, tt.wantDims)
			}
		})
	}
}

func TestParse_TrimsFields(t *testing.T) {
	ds := Parse(header + "\n" + "  Tech ; Sub ;Ind ; ok ;X; Desc ;F;D;S; Media ;M;SD; B ")
	if len(ds.Records) != 1 {
		t.Fatalf("записей = %d, ожидается 1", len(ds.Records))
	}
	rec := ds.Records[0]
	if rec.Dimension != "Tech" || rec.Subdimension != "Sub" || rec.Description != "Desc" ||
		rec.Importance != "Media" || rec.Bibliography != "B" {
		t.Errorf("поля не обрезаны: %+v", rec)
	}
}

func TestParse_DimensionOrderFirstSeen(t *testing.T) {
	lines := []string{header,
		row("Gov", "g1"), row("Tech", "t1"), row("Gov", "g2"),
		row("Skills", "s1"), row("Tech", "t2"), row("Gov", "g3"),
	}
	ds := Parse(strings.Join(lines, "\n"))

	want := []string{"Gov", "Tech", "Skills"}
	if !reflect.DeepEqual(ds.Dimensions, want) {
		t.Fatalf("Dimensions = %v, ожидается %v", ds.Dimensions, want)
	}

	gov := ds.ByDimension("Gov")
	var got []string
	for _, r := range gov {
		got = append(got, r.Indicator)
	}
	if !reflect.DeepEqual(got, []string{"g1", "g2", "g3"}) {
		t.Errorf("ByDimension(Gov) = %v, ожидается [g1 g2 g3]", got)
	}
	if ds.Count("Gov") != 3 || ds.Count("Tech") != 2 || ds.Count("Missing") != 0 {
		t.Errorf("Count: Gov=%d Tech=%d Missing=%d", ds.Count("Gov"), ds.Count("Tech"), ds.Count("Missing"))
	}
	if got := ds.ByDimension("Missing"); len(got) != 0 {
		t.Errorf("ByDimension(Missing) = %v, ожидается пусто", got)
	}

	groups := ds.Groups()
	if len(groups) != 3 {
		t.Fatalf("групп = %d, ожидается 3", len(groups))
	}
	total := 0
	for i, g := range groups {
		if g.Dimension != want[i] {
			t.Errorf("groups[%d].Dimension = %q, ожидается %q", i, g.Dimension, want[i])
		}
		if len(g.Records) != ds.Count(g.Dimension) {
			t.Errorf("группа %q: %d записей, Count = %d", g.Dimension, len(g.Records), ds.Count(g.Dimension))
		}
		total += len(g.Records)
	}
	if total != len(ds.Records) {
		t.Errorf("сумма по группам = %d, всего записей %d", total, len(ds.Records))
	}
}

// TestParse_AcceptedCount проверяет, что число принятых записей равно числу
// непустых строк данных с >= 13 полями и непустым первым полем.
func TestParse_AcceptedCount(t *testing.T) {
	lines := []string{header}
	expected := 0
	for i := range 60 {
		switch i % 5 {
		case 0:
			lines = append(lines, row(fmt.Sprintf("D%d", i%7), fmt.Sprintf("I%d", i)))
			expected++
		case 1:
			lines = append(lines, "short;row")
		case 2:
			lines = append(lines, "")
		case 3:
			lines = append(lines, row("", fmt.Sprintf("I%d", i)))
		case 4:
			lines = append(lines, row(fmt.Sprintf("D%d", i%3), fmt.Sprintf("I%d", i))+";extra")
			expected++
		}
	}

	ds := Parse(strings.Join(lines, "\n"))
	if len(ds.Records) != expected {
		t.Errorf("записей = %d, ожидается %d", len(ds.Records), expected)
	}
	// 12 коротких строк + 12 строк без измерения
	if ds.Dropped != 24 {
		t.Errorf("Dropped = %d, ожидается 24", ds.Dropped)
	}
}

func TestParse_Idempotent(t *testing.T) {
	text := strings.Join([]string{header, row("Tech", "a"), "bad", row("Gov", "b")}, "\n")
	first := Parse(text)
	second := Parse(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("повторный разбор дал другой результат:\n%+v\n%+v", first, second)
	}
}

func TestColumnTable(t *testing.T) {
	if len(columns) != 12 {
		t.Fatalf("в таблице %d колонок, ожидается 12", len(columns))
	}
	seen := make(map[int]bool)
	for _, c := range columns {
		if c.index == SkippedColumn {
			t.Errorf("поле %q отображено на пропускаемую колонку %d", c.field, SkippedColumn)
		}
		if c.index < 0 || c.index >= MinFields {
			t.Errorf("поле %q: колонка %d вне диапазона", c.field, c.index)
		}
		if seen[c.index] {
			t.Errorf("колонка %d используется дважды", c.index)
		}
		seen[c.index] = true
	}

	if idx, ok := ColumnIndex(FieldDescription); !ok || idx != 5 {
		t.Errorf("ColumnIndex(description) = %d, %v; ожидается 5, true", idx, ok)
	}
	if idx, ok := ColumnIndex(FieldBibliography); !ok || idx != 12 {
		t.Errorf("ColumnIndex(bibliography) = %d, %v; ожидается 12, true", idx, ok)
	}
	if _, ok := ColumnIndex(Field("code")); ok {
		t.Error("ColumnIndex(code) должен вернуть ok=false")
	}
}
