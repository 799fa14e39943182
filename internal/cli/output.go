package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/SpiderChef/internal/domain"
)

// Output — вывод команд. Результаты идут в stdout таблицей или JSON,
// служебные сообщения и ошибки в stderr.
type Output struct {
	jsonMode bool
	data     io.Writer
	messages io.Writer
}

// NewOutput создаёт Output поверх stdout и stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками данных и сообщений.
func NewOutputTo(jsonMode bool, data, messages io.Writer) *Output {
	return &Output{jsonMode: jsonMode, data: data, messages: messages}
}

// Print выводит строки таблицы или, в режиме JSON, значение v.
func (o *Output) Print(headers []string, rows [][]string, v any) {
	if o.jsonMode {
		o.JSON(v)
		return
	}
	o.Table(headers, rows)
}

// runSummary — итог запуска в JSON выводе cook.
type runSummary struct {
	*domain.Run
	OutputFile string  `json:"output_file,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// RunSummary выводит итог запуска рецепта.
// Файл вывода показывается только для успешного запуска.
func (o *Output) RunSummary(run *domain.Run, outputFile string) {
	if run.Status != domain.RunStatusSucceeded {
		outputFile = ""
	}

	if o.jsonMode {
		o.JSON(runSummary{
			Run:        run,
			OutputFile: outputFile,
			DurationMS: float64(run.Duration().Microseconds()) / 1000,
		})
		return
	}

	cell := outputFile
	if cell == "" {
		cell = "-"
	}
	o.Table(
		[]string{"RUN ID", "RECIPE", "STATUS", "DURATION", "OUTPUT"},
		[][]string{{run.ID.String(), run.Recipe, string(run.Status), run.Duration().String(), cell}},
	)
	if run.Error != "" {
		fmt.Fprintf(o.messages, "%s: %s\n", run.Status, run.Error)
	}
}

// Table выводит таблицу с подчёркнутыми заголовками.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)

	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	for _, line := range append([][]string{headers, underline}, rows...) {
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	tw.Flush()
}

// JSON выводит v с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(o.messages, "Error: encode json: %v\n", err)
	}
}

// Notice выводит служебное сообщение в stderr.
func (o *Output) Notice(format string, args ...any) {
	fmt.Fprintf(o.messages, format+"\n", args...)
}

// Error выводит ошибку команды в stderr.
// В режиме JSON это объект {"error": "..."}.
func (o *Output) Error(err error) {
	if o.jsonMode {
		enc := json.NewEncoder(o.messages)
		enc.Encode(map[string]string{"error": err.Error()})
		return
	}
	fmt.Fprintln(o.messages, "Error:", err)
}
