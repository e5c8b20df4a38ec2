package core

// RoomDirectory tracks which client ids belong to each room.
// Empty rooms are pruned immediately.
type RoomDirectory struct {
	rooms map[string]map[string]struct{}
}

// NewRoomDirectory returns a directory with no rooms.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[string]map[string]struct{})}
}

// Join adds clientID to roomID, creating the room if needed.
func (d *RoomDirectory) Join(roomID, clientID string) {
	members := d.rooms[roomID]
	if members == nil {
		members = make(map[string]struct{})
		d.rooms[roomID] = members
	}
	members[clientID] = struct{}{}
}

// Leave removes clientID from roomID and drops the room once it is empty.
func (d *RoomDirectory) Leave(roomID, clientID string) {
	members, ok := d.rooms[roomID]
	if !ok {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(d.rooms, roomID)
	}
}

// Size returns the member count of roomID, 0 if the room does not exist.
func (d *RoomDirectory) Size(roomID string) int {
	return len(d.rooms[roomID])
}

// Len returns the number of non-empty rooms.
func (d *RoomDirectory) Len() int {
	return len(d.rooms)
}

// State is the relay's long-lived mutable state: the registry and the room
// directory derived from it. Only the hub loop touches it.
type State struct {
	Registry *Registry
	Rooms    *RoomDirectory
}

// NewState returns empty relay state.
func NewState() *State {
	return &State{
		Registry: NewRegistry(),
		Rooms:    NewRoomDirectory(),
	}
}
