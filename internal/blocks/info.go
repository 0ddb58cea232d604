package blocks

import "github.com/banshee-data/multitouch/internal/touch/fingers"

// BlockType is the shape a host gives a block.
type BlockType string

const (
	BlockBoolean  BlockType = "Boolean"
	BlockReporter BlockType = "reporter"
)

// ArgumentType is the host input kind of a block argument.
type ArgumentType string

const (
	ArgString ArgumentType = "string"
	ArgNumber ArgumentType = "number"
)

// Argument describes one block input.
type Argument struct {
	Type         ArgumentType `json:"type"`
	DefaultValue any          `json:"defaultValue"`
	Menu         string       `json:"menu,omitempty"`
}

// Block describes one registered block. A Block with Separator set is a
// visual divider with no opcode.
type Block struct {
	Opcode    string              `json:"opcode,omitempty"`
	BlockType BlockType           `json:"blockType,omitempty"`
	Text      string              `json:"text,omitempty"`
	Arguments map[string]Argument `json:"arguments,omitempty"`
	Separator bool                `json:"separator,omitempty"`
}

// Menu is a drop-down attached to a string argument.
type Menu struct {
	AcceptReporters bool     `json:"acceptReporters"`
	Items           []string `json:"items"`
}

// Info is the descriptor the host registers.
type Info struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Color1 string          `json:"color1"`
	Blocks []Block         `json:"blocks"`
	Menus  map[string]Menu `json:"menus"`
}

// Info returns the extension descriptor.
func (e *Extension) Info() Info {
	idArg := Argument{Type: ArgNumber, DefaultValue: 1}

	items := make([]string, 0, len(fingers.Properties()))
	for _, p := range fingers.Properties() {
		items = append(items, p.String())
	}

	return Info{
		ID:     "skyhigh173touch",
		Name:   "Multi Touch",
		Color1: "#F76AB3",
		Blocks: []Block{
			{Opcode: OpTouchAvailable, BlockType: BlockBoolean, Text: "is touch available?"},
			{Opcode: OpMaxMultiTouch, BlockType: BlockReporter, Text: "maximum finger count"},
			{Separator: true},
			{Opcode: OpNumOfFingers, BlockType: BlockReporter, Text: "number of fingers"},
			{Opcode: OpNumOfFingersID, BlockType: BlockReporter, Text: "number of fingers ID"},
			{
				Opcode:    OpPropOfFinger,
				BlockType: BlockReporter,
				Text:      "[PROP] of finger [ID]",
				Arguments: map[string]Argument{
					"PROP": {Type: ArgString, DefaultValue: "x", Menu: "prop"},
					"ID":   idArg,
				},
			},
			{
				Opcode:    OpFingerExists,
				BlockType: BlockBoolean,
				Text:      "finger [ID] exists?",
				Arguments: map[string]Argument{"ID": idArg},
			},
		},
		Menus: map[string]Menu{
			"prop": {AcceptReporters: true, Items: items},
		},
	}
}
