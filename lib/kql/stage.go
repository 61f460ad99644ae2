package kql

import "strings"

// StageKind tags a pipeline stage with the KQL operator it carries.
type StageKind string

const (
	StageSource    StageKind = "source"
	StageJoin      StageKind = "join"
	StageExtend    StageKind = "extend"
	StageWhere     StageKind = "where"
	StageProject   StageKind = "project"
	StageDistinct  StageKind = "distinct"
	StageUnion     StageKind = "union"
	StageSummarize StageKind = "summarize"
	StageOrderBy   StageKind = "order by"
	StageLimit     StageKind = "limit"
)

// Stage is a single rendered KQL pipeline operator.
type Stage struct {
	Kind StageKind
	Text string
}

// Pipeline is an ordered sequence of stages. Its String form is the
// final KQL query: the source stage followed by pipe-delimited
// operators, one per line.
type Pipeline struct {
	Stages []Stage
}

func (p *Pipeline) add(kind StageKind, text string) {
	p.Stages = append(p.Stages, Stage{Kind: kind, Text: text})
}

func (p *Pipeline) String() string {
	var b strings.Builder
	for i, stage := range p.Stages {
		if i > 0 {
			b.WriteString("\n| ")
		}
		b.WriteString(stage.Text)
	}
	return b.String()
}
