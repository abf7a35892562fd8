/*Package invindex builds an inverted index over a corpus of delimited
documents.

For every word it records each (document, sentence, position) occurrence.
The build runs as a MapReduce job: input files are cut into byte-range splits
and packed into map tasks, map tasks tokenize document records and write
partitioned shuffle files, and one reduce task per shard merges the
occurrences of each word and writes its part of the index.

Inputs, stop words, shuffle data and output may live on the local disk or in
S3. A Driver is configured through Options, an invindexrc config file,
INVINDEX_* environment variables and command line flags.
*/
package invindex
