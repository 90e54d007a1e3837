package mcpserver

// CardFormatContract describes the card file format and binding rules for
// LLM consumers that author or drive cards.
const CardFormatContract = `# Card Format Contract

A bundle is a directory under the bundles root holding one card file
(` + "`card.json`, `card.yaml` or `card.yml`" + `) plus optional assets.

## Structure

` + "```" + `json
{
  "template": {"type": "div", "classList": ["card"], "children": [
    {"type": "text", "attr": {"value": "{{title}}"}, "events": {"click": "open"}}
  ]},
  "styles":  {".card": {"padding": "8px"}, "@MEDIA": [{"condition": "(dark-mode: true)", ".card": {"color": "white"}}]},
  "actions": {"open": {"action": "router", "params": {"uri": "{{uri}}"}}},
  "data":    {"title": "Hello", "uri": "pages/detail"},
  "apiVersion": {"7": {"title": "Hello v7"}}
}
` + "```" + `

1. **` + "`template`, `styles`, `actions` and `data`" + ` are required** and must be objects.
2. **Nodes** have a ` + "`type`" + `, optional ` + "`attr`, `style`, `classList`, `events`, `children`" + `,
   ` + "`shown`" + ` and ` + "`repeat`" + `.
3. **Any other top-level key** whose value has a ` + "`template`" + ` is a custom component.
   Using its name as a node type expands it in place. Its ` + "`props`" + ` receive the invoking
   node's attributes; ` + "`proxy`" + ` actions forward to the invoker's events.
4. **` + "`apiVersion`" + `** maps a level to a data patch. Every level at or below the host
   level is applied in ascending order.

## Bindings

| Form | Meaning |
|------|---------|
| ` + "`{{name}}`" + ` | data value |
| ` + "`{{a.b}}`, `{{list[0].x}}`, `{{list[idx]}}`" + ` | path into data |
| ` + "`{{flag ? a : 'text'}}`" + ` | ternary; the condition must be the string true |
| ` + "`{{a && b}}`, `{{a \\|\\| b}}`, `{{!a}}`" + ` | one logical operator; longer chains stay literal |
| ` + "`$f(text {{a}} text {{b}})`" + ` | splice several bindings into text |
| ` + "`{{$r('image.icon')}}`" + ` | resource lookup by color mode and density |
| ` + "`{{$t('key')}}`, `{{$tc('key', n)}}`" + ` | translation and plural translation |

A binding that cannot be resolved is emitted unchanged.

## Repeat

` + "`\"repeat\": \"{{list}}\"`" + ` or ` + "`{\"exp\": \"{{list}}\", \"key\": \"i\", \"value\": \"item\"}`" + ` expands a node
once per item. Inside, ` + "`$item` and `$idx`" + ` (or the given aliases) are bound. On update,
surviving items keep their node ids, new items get fresh ids and surplus items are removed.

## Shown

` + "`\"shown\": \"{{a}} && !{{b}}\"`" + ` sets the ` + "`show`" + ` attribute. A ` + "`block`" + ` node has no element of
its own; its shown flag applies to each child.

## Media conditions

` + "`(dark-mode: true)`, `(min-width: 300)`, `(orientation: landscape)`, `(device-type: watch)`" + `,
joined with ` + "`and`" + `, ` + "`or`" + ` or ` + "`,`" + `, optionally prefixed with ` + "`screen and`" + `.
`
