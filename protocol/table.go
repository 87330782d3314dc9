package protocol

type packetType struct {
	state State
	dir   Direction
	new   func() Packet
}

var packetTypes = []packetType{
	{Handshake, Serverbound, func() Packet { return new(Intention) }},

	{Status, Serverbound, func() Packet { return new(StatusRequest) }},
	{Status, Serverbound, func() Packet { return new(PingRequest) }},
	{Status, Clientbound, func() Packet { return new(StatusResponse) }},
	{Status, Clientbound, func() Packet { return new(PongResponse) }},

	{Login, Serverbound, func() Packet { return new(Hello) }},
	{Login, Serverbound, func() Packet { return new(Key) }},
	{Login, Serverbound, func() Packet { return new(CustomQueryAnswer) }},
	{Login, Serverbound, func() Packet { return new(LoginAcknowledged) }},
	{Login, Clientbound, func() Packet { return new(LoginDisconnect) }},
	{Login, Clientbound, func() Packet { return new(EncryptionRequest) }},
	{Login, Clientbound, func() Packet { return new(LoginFinished) }},
	{Login, Clientbound, func() Packet { return new(LoginCompression) }},

	{Configuration, Serverbound, func() Packet { return new(ClientInformation) }},
	{Configuration, Serverbound, func() Packet { return new(CustomPayload) }},
	{Configuration, Serverbound, func() Packet { return new(FinishConfiguration) }},
	{Configuration, Serverbound, func() Packet { return new(KeepAlive) }},
	{Configuration, Serverbound, func() Packet { return new(SelectKnownPacks) }},
	{Configuration, Clientbound, func() Packet { return new(CustomPayload) }},
	{Configuration, Clientbound, func() Packet { return new(Disconnect) }},
	{Configuration, Clientbound, func() Packet { return new(FinishConfiguration) }},
	{Configuration, Clientbound, func() Packet { return new(KeepAlive) }},
	{Configuration, Clientbound, func() Packet { return new(RegistryData) }},
	{Configuration, Clientbound, func() Packet { return new(SelectKnownPacks) }},

	{Play, Serverbound, func() Packet { return new(AcceptTeleportation) }},
	{Play, Serverbound, func() Packet { return new(Chat) }},
	{Play, Serverbound, func() Packet { return new(ChunkBatchReceived) }},
	{Play, Serverbound, func() Packet { return new(ClientTickEnd) }},
	{Play, Serverbound, func() Packet { return new(ConfigurationAcknowledged) }},
	{Play, Serverbound, func() Packet { return new(KeepAlive) }},
	{Play, Serverbound, func() Packet { return new(MovePlayerPos) }},
	{Play, Serverbound, func() Packet { return new(MovePlayerPosRot) }},
	{Play, Serverbound, func() Packet { return new(MovePlayerRot) }},
	{Play, Serverbound, func() Packet { return new(MovePlayerStatusOnly) }},
	{Play, Serverbound, func() Packet { return new(PlayerAction) }},
	{Play, Serverbound, func() Packet { return new(PlayerLoaded) }},
	{Play, Serverbound, func() Packet { return new(UseItemOn) }},
	{Play, Clientbound, func() Packet { return new(BlockChangedAck) }},
	{Play, Clientbound, func() Packet { return new(BlockUpdate) }},
	{Play, Clientbound, func() Packet { return new(ChunkBatchFinished) }},
	{Play, Clientbound, func() Packet { return new(ChunkBatchStart) }},
	{Play, Clientbound, func() Packet { return new(Disconnect) }},
	{Play, Clientbound, func() Packet { return new(ForgetLevelChunk) }},
	{Play, Clientbound, func() Packet { return new(GameEvent) }},
	{Play, Clientbound, func() Packet { return new(KeepAlive) }},
	{Play, Clientbound, func() Packet { return new(LevelChunkWithLight) }},
	{Play, Clientbound, func() Packet { return new(PlayLogin) }},
	{Play, Clientbound, func() Packet { return new(PlayerPosition) }},
	{Play, Clientbound, func() Packet { return new(SectionBlocksUpdate) }},
	{Play, Clientbound, func() Packet { return new(SetChunkCacheCenter) }},
	{Play, Clientbound, func() Packet { return new(StartConfiguration) }},
	{Play, Clientbound, func() Packet { return new(SystemChat) }},
}

// DefaultTable returns the 1.21.5 ids of the implemented packets. A packets.json report from the
// data generator can replace or extend it through LoadPacketReport and Merge.
func DefaultTable() PacketTable {
	t := make(PacketTable)
	for s, dirs := range defaultIDs {
		for d, names := range dirs {
			for name, id := range names {
				t.Set(s, d, name, id)
			}
		}
	}
	return t
}

var defaultIDs = map[State]map[Direction]map[string]int32{
	Handshake: {
		Serverbound: {
			"minecraft:intention": 0x00,
		},
	},
	Status: {
		Serverbound: {
			"minecraft:status_request": 0x00,
			"minecraft:ping_request":   0x01,
		},
		Clientbound: {
			"minecraft:status_response": 0x00,
			"minecraft:pong_response":   0x01,
		},
	},
	Login: {
		Serverbound: {
			"minecraft:hello":               0x00,
			"minecraft:key":                 0x01,
			"minecraft:custom_query_answer": 0x02,
			"minecraft:login_acknowledged":  0x03,
			"minecraft:cookie_response":     0x04,
		},
		Clientbound: {
			"minecraft:login_disconnect":  0x00,
			"minecraft:hello":             0x01,
			"minecraft:login_finished":    0x02,
			"minecraft:login_compression": 0x03,
			"minecraft:custom_query":      0x04,
			"minecraft:cookie_request":    0x05,
		},
	},
	Configuration: {
		Serverbound: {
			"minecraft:client_information":   0x00,
			"minecraft:cookie_response":      0x01,
			"minecraft:custom_payload":       0x02,
			"minecraft:finish_configuration": 0x03,
			"minecraft:keep_alive":           0x04,
			"minecraft:pong":                 0x05,
			"minecraft:resource_pack":        0x06,
			"minecraft:select_known_packs":   0x07,
		},
		Clientbound: {
			"minecraft:cookie_request":          0x00,
			"minecraft:custom_payload":          0x01,
			"minecraft:disconnect":              0x02,
			"minecraft:finish_configuration":    0x03,
			"minecraft:keep_alive":              0x04,
			"minecraft:ping":                    0x05,
			"minecraft:reset_chat":              0x06,
			"minecraft:registry_data":           0x07,
			"minecraft:resource_pack_pop":       0x08,
			"minecraft:resource_pack_push":      0x09,
			"minecraft:store_cookie":            0x0A,
			"minecraft:transfer":                0x0B,
			"minecraft:update_enabled_features": 0x0C,
			"minecraft:update_tags":             0x0D,
			"minecraft:select_known_packs":      0x0E,
			"minecraft:custom_report_details":   0x0F,
			"minecraft:server_links":            0x10,
		},
	},
	Play: {
		Serverbound: {
			"minecraft:accept_teleportation":       0x00,
			"minecraft:chat":                       0x08,
			"minecraft:chunk_batch_received":       0x0A,
			"minecraft:client_tick_end":            0x0C,
			"minecraft:configuration_acknowledged": 0x0F,
			"minecraft:keep_alive":                 0x1B,
			"minecraft:move_player_pos":            0x1D,
			"minecraft:move_player_pos_rot":        0x1E,
			"minecraft:move_player_rot":            0x1F,
			"minecraft:move_player_status_only":    0x20,
			"minecraft:player_action":              0x28,
			"minecraft:player_loaded":              0x2B,
			"minecraft:use_item_on":                0x3F,
		},
		Clientbound: {
			"minecraft:block_changed_ack":      0x04,
			"minecraft:block_update":           0x08,
			"minecraft:chunk_batch_finished":   0x0B,
			"minecraft:chunk_batch_start":      0x0C,
			"minecraft:disconnect":             0x1C,
			"minecraft:forget_level_chunk":     0x21,
			"minecraft:game_event":             0x22,
			"minecraft:keep_alive":             0x26,
			"minecraft:level_chunk_with_light": 0x27,
			"minecraft:login":                  0x2B,
			"minecraft:player_position":        0x41,
			"minecraft:section_blocks_update":  0x4E,
			"minecraft:set_chunk_cache_center": 0x57,
			"minecraft:start_configuration":    0x6F,
			"minecraft:system_chat":            0x72,
		},
	},
}
