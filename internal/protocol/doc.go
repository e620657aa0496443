// Package protocol encodes downlink commands and decodes uplink telemetry
// using protobuf wire encoding.
//
// The message shapes follow the robot's public API:
//
//	ApiDown     { 1: BaseCommand | 2: ReportFrequency ; 15: uint64 sequence }
//	BaseCommand { 1: bool api_control_initialize | 2: SimpleBaseMoveCommand }
//	ApiUp       { 1: session_id ; 2: protocol_major_version ; 3: log ;
//	              4: BaseStatus ; 5: timestamp_us ; 6: ack_sequence }
//
// Encode and Decode are the client directions. DecodeCommand and EncodeUplink
// mirror them for the simulator and for tests.
package protocol
