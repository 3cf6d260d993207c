package blockstore

// ActionKind names an Action variant on the wire and in logs.
type ActionKind string

const (
	KindAddBlock       ActionKind = "ADD_BLOCK"
	KindUpdateBlock    ActionKind = "UPDATE_BLOCK"
	KindReplaceBlock   ActionKind = "REPLACE_BLOCK"
	KindRemoveBlock    ActionKind = "REMOVE_BLOCK"
	KindPropertyUpdate ActionKind = "PROPERTY_UPDATE"
)

// Action is a single change to a block list. The set of variants is closed:
// AddBlock, UpdateBlock, ReplaceBlock, RemoveBlock and PropertyUpdate.
type Action interface {
	Kind() ActionKind
	action()
}

// Ref addresses an existing block. ID wins over Index when set.
type Ref struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
}

// AddBlock appends a block. The outcome index is the list length before the
// append.
type AddBlock struct {
	BlockType string         `json:"blockType"`
	Data      map[string]any `json:"data"`
}

// UpdateBlock shallow-merges Updates into the block's data.
type UpdateBlock struct {
	Ref
	Updates map[string]any `json:"updates"`
}

// ReplaceBlock swaps the block's data wholesale. An empty BlockType keeps the
// current type.
type ReplaceBlock struct {
	Ref
	BlockType string         `json:"blockType,omitempty"`
	Data      map[string]any `json:"data"`
}

// RemoveBlock deletes a block.
type RemoveBlock struct {
	Ref
}

// PropertyUpdate sets a single dot path inside the block's data.
type PropertyUpdate struct {
	Ref
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (AddBlock) Kind() ActionKind       { return KindAddBlock }
func (UpdateBlock) Kind() ActionKind    { return KindUpdateBlock }
func (ReplaceBlock) Kind() ActionKind   { return KindReplaceBlock }
func (RemoveBlock) Kind() ActionKind    { return KindRemoveBlock }
func (PropertyUpdate) Kind() ActionKind { return KindPropertyUpdate }

func (AddBlock) action()       {}
func (UpdateBlock) action()    {}
func (ReplaceBlock) action()   {}
func (RemoveBlock) action()    {}
func (PropertyUpdate) action() {}

// Outcome describes an applied action. Previous is the block as it was
// before the change and is zero for AddBlock.
type Outcome struct {
	Kind     ActionKind
	Index    int
	Block    Block
	Previous Block
}
