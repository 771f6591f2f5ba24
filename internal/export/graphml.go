package export

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const graphmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://graphml.graphdrawing.org/xmlns
         http://graphml.graphdrawing.org/xmlns/1.0/graphml.xsd">

  <key id="label" for="node" attr.name="label" attr.type="string"/>
  <key id="type" for="node" attr.name="type" attr.type="string"/>
  <key id="routine" for="node" attr.name="routine" attr.type="string"/>
  <key id="defs" for="node" attr.name="defs" attr.type="string"/>
  <key id="uses" for="node" attr.name="uses" attr.type="string"/>
  <key id="flow_type" for="edge" attr.name="flow_type" attr.type="string"/>
  <key id="value" for="edge" attr.name="value" attr.type="string"/>

  <graph id="cfg" edgedefault="directed">
`

// WriteGraphML renders the control-flow nodes and edges as GraphML
// for graph tooling that does not speak DOT.
func WriteGraphML(tables Tables) string {
	var b strings.Builder
	b.WriteString(graphmlHeader)

	for _, n := range tables.Nodes {
		fmt.Fprintf(&b, "    <node id=%q>\n", n.ID)
		writeData(&b, "label", n.Label)
		writeData(&b, "type", n.Type)
		writeData(&b, "routine", n.Routine)
		writeData(&b, "defs", strings.Join(n.Defs, ","))
		writeData(&b, "uses", strings.Join(n.Uses, ","))
		b.WriteString("    </node>\n")
	}
	b.WriteString("\n")
	for i, e := range tables.Edges {
		fmt.Fprintf(&b, "    <edge id=\"e%d\" source=%q target=%q>\n", i, e.Source, e.Target)
		writeData(&b, "flow_type", e.Type)
		if e.Value != "" {
			writeData(&b, "value", e.Value)
		}
		b.WriteString("    </edge>\n")
	}

	b.WriteString("  </graph>\n</graphml>\n")
	return b.String()
}

func writeData(b *strings.Builder, key, value string) {
	var esc strings.Builder
	xml.EscapeText(&esc, []byte(value))
	fmt.Fprintf(b, "      <data key=%q>%s</data>\n", key, esc.String())
}
