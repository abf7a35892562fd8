/*Package index implements the inverted-index core: the nested occurrence
record kept for every word, its binary and text encodings, the tokenizer and
stop-word filter that produce occurrences from document records, and the
mapper, combiner, reducer, partitioner and key order that the job runner wires
together.

Merging occurrence records is commutative and associative, so a combiner may
pre-aggregate any subset of a word's records in any order before the reducer
folds the rest.
*/
package index
