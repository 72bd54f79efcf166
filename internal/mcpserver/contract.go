package mcpserver

// ProofFormatContract describes the proof blob layouts and the insert
// contract that MCP consumers should follow before calling insert_value.
const ProofFormatContract = `# promptdb Ingest Contract

Every value enters promptdb together with provenance and a proof blob.
A value is committed only when all checks pass; on any failure nothing is
stored and the row id is 0.

## Proof blob

Proofs are passed to tools as **hex** (an optional ` + "`0x`" + ` prefix is accepted).
The decoded blob must be 1..65536 bytes.

Raw layout (default decoder):

` + "```" + `
byte 0      marker, conventionally 0xA6 (not interpreted)
bytes 1..6  provenance, replicability, objective,
            methodology, publication, transparency
` + "```" + `

Missing trailing bytes default the dimension to 50. Extra bytes are ignored.
Example: ` + "`a650465a554b50`" + ` scores 80,70,90,85,75,80 (overall 80).

CBOR layout (decoder "cbor"): a map keyed by dimension name, e.g.
` + "`{\"provenance\": 80, \"replicability\": 70}`" + `. Absent keys default to 50.

Decoded values outside [0,100] are saturated to the nearest bound. A CBOR
blob that does not decode to a map is rejected with ` + "`proof_failed`" + `.

## Scores

- **overall** is the floor of the mean of the six dimensions.
- **tier**: gold >= 80, silver >= 60, bronze >= 40, otherwise unverified.
- **weakest** names the lowest dimension (first in order on ties).

## insert_value

| Field     | Rule                                             |
|-----------|--------------------------------------------------|
| table     | non-empty, at most 64 bytes by default           |
| column    | non-empty                                        |
| actor     | non-empty                                        |
| rationale | non-empty                                        |
| timestamp | milliseconds since epoch or RFC 3339             |
| proof     | hex blob as above                                |

Checks run in this order: table and column, actor, rationale, then
timestamp and hex decoding, proof size, proof decode. A missing or
unparseable timestamp is ` + "`invalid_timestamp`" + `; malformed hex is
` + "`invalid_proof`" + `.

## Status codes

| Code | Name              |
|------|-------------------|
| 0    | ok                |
| 1    | invalid_proof     |
| 2    | proof_failed      |
| 3    | type_error        |
| 4    | invalid_actor     |
| 5    | invalid_rationale |
| 6    | invalid_timestamp |
| 7    | out_of_memory     |
| 8    | generic_error     |

After any failure, last_error returns the message of that failure.
`
