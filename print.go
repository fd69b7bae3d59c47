package mamdani

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// String produces a table listing the rules in order.
func (rs RuleSet) String() string {
	tw := table.NewWriter()
	tw.SetTitle("RULES")
	tw.AppendHeader(table.Row{"#", "If", "Then", "Weight"})
	for i, r := range rs {
		tw.AppendRow(table.Row{i + 1, fmt.Sprint(r.Antecedent), fmt.Sprint(r.Consequent), fmt.Sprintf("%.2f", r.Weight)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}

// Summary produces a table describing the variables and rule count of the
// system.
func (f *FIS) Summary() string {
	tw := table.NewWriter()
	tw.SetTitle("FUZZY INFERENCE SYSTEM")
	tw.AppendHeader(table.Row{"Variable", "Role", "Domain", "Steps", "Values"})
	for _, v := range f.Inputs {
		tw.AppendRow(variableRow(v, "input"))
	}
	if f.Target != nil {
		tw.AppendRow(variableRow(f.Target, "output"))
	}
	tw.AppendFooter(table.Row{"", "", "", "rules", len(f.Rules)})
	return tw.Render()
}

func variableRow(v *Variable, role string) table.Row {
	return table.Row{
		v.Name,
		role,
		fmt.Sprintf("[%v, %v]", v.Domain.Min, v.Domain.Max),
		v.Domain.Steps,
		len(v.Values),
	}
}
